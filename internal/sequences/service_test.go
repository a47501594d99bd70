package sequences

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mesflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

func TestNextSeedsAndIncrements(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	companyID := uuid.New()

	first, err := svc.Next(context.Background(), enums.SequenceJob, companyID)
	require.NoError(t, err)
	assert.Equal(t, "J000001", first)

	second, err := svc.Next(context.Background(), enums.SequenceJob, companyID)
	require.NoError(t, err)
	assert.Equal(t, "J000002", second)

	other, err := svc.Next(context.Background(), enums.SequencePurchaseOrder, companyID)
	require.NoError(t, err)
	assert.Equal(t, "PO000001", other)
}

func TestNextUsesConfiguredRow(t *testing.T) {
	db := dbtest.Open(t)
	companyID := uuid.New()
	require.NoError(t, db.Create(&models.Sequence{
		CompanyID: companyID,
		Table:     enums.SequenceStockTransfer,
		Prefix:    "TR-",
		Suffix:    "-A",
		Next:      41,
		Size:      4,
		Step:      2,
	}).Error)

	got, err := NewService(db).Next(context.Background(), enums.SequenceStockTransfer, companyID)
	require.NoError(t, err)
	assert.Equal(t, "TR-0043-A", got)
}

func TestNextIsScopedPerCompany(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)

	a, err := svc.Next(context.Background(), enums.SequenceJob, uuid.New())
	require.NoError(t, err)
	b, err := svc.Next(context.Background(), enums.SequenceJob, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNextConcurrentCallersGetDistinctValues(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	companyID := uuid.New()

	const callers = 25
	results := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.Next(context.Background(), enums.SequencePurchaseOrder, companyID)
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			results <- id
		}()
	}
	wg.Wait()
	close(results)

	seen := map[string]bool{}
	for id := range results {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, callers)

	var row models.Sequence
	require.NoError(t, db.Where("company_id = ? AND table_name = ?", companyID, enums.SequencePurchaseOrder).First(&row).Error)
	assert.EqualValues(t, callers, row.Next)
}

func TestNextRejectsUnknownTable(t *testing.T) {
	svc := NewService(dbtest.Open(t))

	_, err := svc.Next(context.Background(), enums.SequenceTable("invoice"), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "J000012", Format("J", 12, 6, ""))
	assert.Equal(t, "1234567", Format("", 1234567, 3, ""))
	assert.Equal(t, "PO7/26", Format("PO", 7, 0, "/26"))
}

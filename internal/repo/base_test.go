package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mesflow-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

func TestBaseDB_BindsContext(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	require.NotNil(t, withCtx)
	require.NotNil(t, withCtx.Statement)
	assert.Equal(t, ctx, withCtx.Statement.Context)

	assert.Same(t, db, base.DB(nil))
}

func TestBaseScopedFiltersByCompany(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)
	mine, theirs := uuid.New(), uuid.New()
	require.NoError(t, db.Create(&[]models.Company{{ID: mine, Name: "mine"}, {ID: theirs, Name: "theirs"}}).Error)
	require.NoError(t, db.Create(&models.Item{ID: uuid.New(), CompanyID: mine, ReadableID: "A", Name: "A"}).Error)
	require.NoError(t, db.Create(&models.Item{ID: uuid.New(), CompanyID: theirs, ReadableID: "B", Name: "B"}).Error)

	var items []models.Item
	require.NoError(t, base.Scoped(context.Background(), mine).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ReadableID)
}

func TestBaseBind(t *testing.T) {
	db := dbtest.Open(t)
	base := NewBase(db)

	assert.Equal(t, base, base.Bind(nil))

	tx := db.Begin()
	defer tx.Rollback()
	bound := base.Bind(tx)
	assert.Same(t, tx, bound.DB(nil))
}

package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// ErrStatusChanged is returned when the job no longer has the status the
// transition was validated against.
var ErrStatusChanged = errors.New("job status changed concurrently")

// StatusUpdate is the set of columns a transition writes. From is the status
// the transition was checked against; the write only applies while it holds.
type StatusUpdate struct {
	From          enums.JobStatus
	Status        enums.JobStatus
	UpdatedBy     uuid.UUID
	ReleasedDate  *time.Time
	ClearAssignee bool
}

// Repository reads and updates jobs.
type Repository interface {
	FindJob(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error)
	ManufacturingBlocked(ctx context.Context, companyID, itemID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, companyID, jobID uuid.UUID, update StatusUpdate) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) FindJob(ctx context.Context, companyID, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.Scoped(ctx, companyID).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// ManufacturingBlocked is false when the item has no replenishment record.
func (r *repository) ManufacturingBlocked(ctx context.Context, companyID, itemID uuid.UUID) (bool, error) {
	var blocked []bool
	err := r.Scoped(ctx, companyID).
		Model(&models.ItemReplenishment{}).
		Where("item_id = ?", itemID).
		Limit(1).
		Pluck("manufacturing_blocked", &blocked).Error
	if err != nil {
		return false, err
	}
	return len(blocked) > 0 && blocked[0], nil
}

func (r *repository) UpdateStatus(ctx context.Context, companyID, jobID uuid.UUID, update StatusUpdate) error {
	values := map[string]any{
		"status":     update.Status,
		"updated_by": update.UpdatedBy,
	}
	if update.ReleasedDate != nil {
		values["released_date"] = *update.ReleasedDate
	}
	if update.ClearAssignee {
		values["assignee"] = nil
	}
	res := r.Scoped(ctx, companyID).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, update.From).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.Scoped(ctx, companyID).Model(&models.Job{}).Where("id = ?", jobID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrStatusChanged
	}
	return nil
}

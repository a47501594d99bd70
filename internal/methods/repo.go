package methods

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

// Repository reads item method trees and writes their job copies.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ActiveMakeMethod(ctx context.Context, companyID, itemID uuid.UUID) (*models.MakeMethod, error)
	Materials(ctx context.Context, companyID, makeMethodID uuid.UUID) ([]models.MethodMaterial, error)
	Operations(ctx context.Context, companyID, makeMethodID uuid.UUID) ([]models.MethodOperation, error)
	CreateJobMakeMethod(ctx context.Context, jmm *models.JobMakeMethod) error
	CreateJobMaterials(ctx context.Context, materials []models.JobMaterial) error
	CreateJobOperations(ctx context.Context, operations []models.JobOperation) error
	JobMakeMethods(ctx context.Context, companyID, jobID uuid.UUID) ([]models.JobMakeMethod, error)
	JobMaterials(ctx context.Context, companyID, jobID uuid.UUID) ([]models.JobMaterial, error)
	UpdateEstimatedQuantity(ctx context.Context, companyID, materialID uuid.UUID, quantity decimal.Decimal) error
	DeleteJobTree(ctx context.Context, companyID, jobID uuid.UUID) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) ActiveMakeMethod(ctx context.Context, companyID, itemID uuid.UUID) (*models.MakeMethod, error) {
	var mm models.MakeMethod
	err := r.Scoped(ctx, companyID).
		Where("item_id = ? AND active = ?", itemID, true).
		Order("version DESC").
		First(&mm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &mm, nil
}

func (r *repository) Materials(ctx context.Context, companyID, makeMethodID uuid.UUID) ([]models.MethodMaterial, error) {
	var rows []models.MethodMaterial
	err := r.Scoped(ctx, companyID).
		Where("make_method_id = ?", makeMethodID).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Operations(ctx context.Context, companyID, makeMethodID uuid.UUID) ([]models.MethodOperation, error) {
	var rows []models.MethodOperation
	err := r.Scoped(ctx, companyID).
		Where("make_method_id = ?", makeMethodID).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CreateJobMakeMethod(ctx context.Context, jmm *models.JobMakeMethod) error {
	return r.DB(ctx).Create(jmm).Error
}

func (r *repository) CreateJobMaterials(ctx context.Context, materials []models.JobMaterial) error {
	if len(materials) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&materials).Error
}

func (r *repository) CreateJobOperations(ctx context.Context, operations []models.JobOperation) error {
	if len(operations) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&operations).Error
}

func (r *repository) JobMakeMethods(ctx context.Context, companyID, jobID uuid.UUID) ([]models.JobMakeMethod, error) {
	var rows []models.JobMakeMethod
	err := r.Scoped(ctx, companyID).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) JobMaterials(ctx context.Context, companyID, jobID uuid.UUID) ([]models.JobMaterial, error) {
	var rows []models.JobMaterial
	err := r.Scoped(ctx, companyID).
		Where("job_id = ?", jobID).
		Order("sort_order ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateEstimatedQuantity(ctx context.Context, companyID, materialID uuid.UUID, quantity decimal.Decimal) error {
	return r.Scoped(ctx, companyID).
		Model(&models.JobMaterial{}).
		Where("id = ?", materialID).
		Update("estimated_quantity", quantity).Error
}

// DeleteJobTree removes operations, materials and make methods of a job.
func (r *repository) DeleteJobTree(ctx context.Context, companyID, jobID uuid.UUID) error {
	for _, model := range []any{&models.JobOperation{}, &models.JobMaterial{}, &models.JobMakeMethod{}} {
		if err := r.Scoped(ctx, companyID).Where("job_id = ?", jobID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

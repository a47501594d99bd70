package fulfillment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/internal/repo"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
)

// Repository reads and updates stock transfers.
// ErrLineChanged is returned when another pick updated the line first.
var ErrLineChanged = errors.New("stock transfer line was picked concurrently")

type Repository interface {
	FindLine(ctx context.Context, companyID, lineID uuid.UUID) (*models.StockTransferLine, error)
	FindTransfer(ctx context.Context, companyID, transferID uuid.UUID) (*models.StockTransfer, error)
	UpdatePickedQuantity(ctx context.Context, companyID, lineID uuid.UUID, previous, picked decimal.Decimal, userID uuid.UUID) error
	ListLines(ctx context.Context, companyID, transferID uuid.UUID) ([]models.StockTransferLine, error)
	UpdateTransferStatus(ctx context.Context, companyID, transferID uuid.UUID, status enums.StockTransferStatus, completedAt *time.Time) error
}

type repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) FindLine(ctx context.Context, companyID, lineID uuid.UUID) (*models.StockTransferLine, error) {
	var line models.StockTransferLine
	if err := r.Scoped(ctx, companyID).Where("id = ?", lineID).First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &line, nil
}

func (r *repository) FindTransfer(ctx context.Context, companyID, transferID uuid.UUID) (*models.StockTransfer, error) {
	var transfer models.StockTransfer
	if err := r.Scoped(ctx, companyID).Where("id = ?", transferID).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transfer, nil
}

// UpdatePickedQuantity stores picked only while the line still holds
// previous, the quantity the posted entries were computed from.
func (r *repository) UpdatePickedQuantity(ctx context.Context, companyID, lineID uuid.UUID, previous, picked decimal.Decimal, userID uuid.UUID) error {
	res := r.Scoped(ctx, companyID).
		Model(&models.StockTransferLine{}).
		Where("id = ? AND picked_quantity = ?", lineID, previous).
		Updates(map[string]any{"picked_quantity": picked, "updated_by": userID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.Scoped(ctx, companyID).Model(&models.StockTransferLine{}).Where("id = ?", lineID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return gorm.ErrRecordNotFound
	}
	return ErrLineChanged
}

func (r *repository) ListLines(ctx context.Context, companyID, transferID uuid.UUID) ([]models.StockTransferLine, error) {
	var lines []models.StockTransferLine
	err := r.Scoped(ctx, companyID).
		Where("stock_transfer_id = ?", transferID).
		Order("id ASC").
		Find(&lines).Error
	return lines, err
}

func (r *repository) UpdateTransferStatus(ctx context.Context, companyID, transferID uuid.UUID, status enums.StockTransferStatus, completedAt *time.Time) error {
	return r.Scoped(ctx, companyID).
		Model(&models.StockTransfer{}).
		Where("id = ?", transferID).
		Updates(map[string]any{"status": status, "completed_at": completedAt}).Error
}

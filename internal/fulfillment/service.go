package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/internal/shelves"
	"github.com/angelmondragon/mesflow-backend/internal/tasks"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/metrics"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

const compensationOperation = "stock_transfer_pick"

type ledgerWriter interface {
	PostTransfer(ctx context.Context, input ledger.TransferInput) ([]models.ItemLedgerEntry, error)
	RemoveEntries(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error
	DocumentBalance(ctx context.Context, companyID, documentID uuid.UUID) (decimal.Decimal, error)
}

// PickInput records the quantity picked on one transfer line.
type PickInput struct {
	TransferLineID uuid.UUID
	PickedQuantity decimal.Decimal
	LocationID     uuid.UUID
	CompanyID      uuid.UUID
	UserID         uuid.UUID
}

type PickResult struct {
	TransferID     uuid.UUID                 `json:"stockTransferId"`
	LineID         uuid.UUID                 `json:"stockTransferLineId"`
	PickedQuantity decimal.Decimal           `json:"pickedQuantity"`
	Posted         decimal.Decimal           `json:"postedQuantity"`
	ItemsPicked    int                       `json:"itemsPicked"`
	Status         enums.StockTransferStatus `json:"status"`
}

// Picker posts picks against stock transfer lines.
type Picker interface {
	Pick(ctx context.Context, input PickInput) (*PickResult, error)
}

type ServiceParams struct {
	Repo    Repository
	Ledger  ledgerWriter
	Shelves shelves.Resolver
	Tasks   tasks.Queue
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
	// Mode is config.PickModeDelta or config.PickModeReplace; empty means delta.
	Mode string
	Now  func() time.Time
}

type Service struct {
	repo    Repository
	ledger  ledgerWriter
	shelves shelves.Resolver
	tasks   tasks.Queue
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	mode    string
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("stock transfer repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger writer required")
	case params.Shelves == nil:
		return nil, fmt.Errorf("shelf resolver required")
	case params.Tasks == nil:
		return nil, fmt.Errorf("task queue required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	mode := strings.ToLower(strings.TrimSpace(params.Mode))
	switch mode {
	case "":
		mode = config.PickModeDelta
	case config.PickModeDelta, config.PickModeReplace:
	default:
		return nil, fmt.Errorf("unknown pick quantity mode %q", params.Mode)
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    params.Repo,
		ledger:  params.Ledger,
		shelves: params.Shelves,
		tasks:   params.Tasks,
		logg:    params.Logger,
		metrics: params.Metrics,
		mode:    mode,
		now:     now,
	}, nil
}

// Pick moves the picked quantity from the line's source shelf to its
// destination shelf and stores the new picked quantity on the line.
func (s *Service) Pick(ctx context.Context, input PickInput) (*PickResult, error) {
	if input.TransferLineID == uuid.Nil || input.CompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer line and company are required")
	}
	if input.PickedQuantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "picked quantity must not be negative")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"company_id":             input.CompanyID.String(),
		"user_id":                input.UserID.String(),
		"stock_transfer_line_id": input.TransferLineID.String(),
	})

	line, err := s.repo.FindLine(ctx, input.CompanyID, input.TransferLineID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfer line")
	}
	if line == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock transfer line not found")
	}
	transfer, err := s.repo.FindTransfer(ctx, input.CompanyID, line.StockTransferID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock transfer")
	}
	if transfer == nil || transfer.LocationID != input.LocationID || line.LocationID != input.LocationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock transfer line not found at this location")
	}
	ctx = s.logg.WithDocument(ctx, "stockTransfer", transfer.ID.String())

	quantity := s.transactionQuantity(input.PickedQuantity, line.PickedQuantity)

	var entries []models.ItemLedgerEntry
	if !quantity.IsZero() {
		lineID := line.ID
		entries, err = s.ledger.PostTransfer(ctx, ledger.TransferInput{
			CompanyID:      input.CompanyID,
			ItemID:         line.ItemID,
			LocationID:     line.LocationID,
			FromShelfID:    line.FromShelfID,
			ToShelfID:      line.ToShelfID,
			Quantity:       quantity,
			DocumentID:     transfer.ID,
			DocumentLineID: &lineID,
			UserID:         input.UserID,
			PostingDate:    s.now().UTC(),
		})
		if err != nil {
			if pkgerrors.As(err) != nil {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "post transfer entries")
		}
	}

	if err := s.repo.UpdatePickedQuantity(ctx, input.CompanyID, line.ID, line.PickedQuantity, input.PickedQuantity, input.UserID); err != nil {
		if undoErr := s.reverse(ctx, input.CompanyID, entries, quantity); undoErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeCompensation, undoErr, "picked quantity not saved and ledger entries could not be removed")
		}
		if errors.Is(err, ErrLineChanged) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "stock transfer line changed while picking")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update picked quantity")
	}

	itemsPicked, status := s.refreshStatus(ctx, input.CompanyID, transfer)

	if !quantity.IsZero() {
		s.afterPick(ctx, input, line)
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"posted_quantity": quantity.String(),
		"status":          string(status),
	}), "stock transfer line picked")

	return &PickResult{
		TransferID:     transfer.ID,
		LineID:         line.ID,
		PickedQuantity: input.PickedQuantity,
		Posted:         quantity,
		ItemsPicked:    itemsPicked,
		Status:         status,
	}, nil
}

func (s *Service) transactionQuantity(picked, previous decimal.Decimal) decimal.Decimal {
	if s.mode == config.PickModeReplace {
		if picked.IsZero() {
			return previous.Neg()
		}
		return picked
	}
	return picked.Sub(previous)
}

// reverse removes entries posted by a pick whose line update failed.
func (s *Service) reverse(ctx context.Context, companyID uuid.UUID, entries []models.ItemLedgerEntry, quantity decimal.Decimal) error {
	if len(entries) == 0 {
		return nil
	}
	ids := ledger.EntryIDs(entries)
	if err := s.ledger.RemoveEntries(ctx, companyID, ids); err != nil {
		s.metrics.IncCompensation(compensationOperation, "failed")
		idStrings := make([]string, 0, len(ids))
		for _, id := range ids {
			idStrings = append(idStrings, id.String())
		}
		s.logg.Error(s.logg.WithFields(ctx, map[string]any{
			"error_code":         string(pkgerrors.CodeCompensation),
			"ledger_entry_ids":   idStrings,
			"attempted_reversal": quantity.Neg().String(),
		}), "ledger entries left without a picked quantity", err)
		return err
	}
	s.metrics.IncCompensation(compensationOperation, "ok")

	// Paired entries keep every document at zero. Anything else needs reconciling.
	documentID := entries[0].DocumentID
	balance, err := s.ledger.DocumentBalance(ctx, companyID, documentID)
	switch {
	case err != nil:
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "could not verify document balance after reversal")
	case !balance.IsZero():
		s.logg.Warn(s.logg.WithField(ctx, "document_balance", balance.String()), "document ledger is unbalanced after reversal")
	}
	return nil
}

// refreshStatus derives the transfer status from its lines and stores it. A
// failed read or write is logged and the pick still succeeds.
func (s *Service) refreshStatus(ctx context.Context, companyID uuid.UUID, transfer *models.StockTransfer) (int, enums.StockTransferStatus) {
	lines, err := s.repo.ListLines(ctx, companyID, transfer.ID)
	if err != nil {
		s.logg.Error(ctx, "load stock transfer lines", err)
		return 0, transfer.Status
	}
	picked, status := DeriveStatus(lines)
	if status == transfer.Status {
		return picked, status
	}
	var completedAt *time.Time
	if status == enums.StockTransferStatusCompleted {
		now := s.now().UTC()
		completedAt = &now
	}
	if err := s.repo.UpdateTransferStatus(ctx, companyID, transfer.ID, status, completedAt); err != nil {
		s.logg.Error(ctx, "update stock transfer status", err)
	}
	return picked, status
}

func (s *Service) afterPick(ctx context.Context, input PickInput, line *models.StockTransferLine) {
	if line.ToShelfID != nil {
		if _, err := s.shelves.PromoteDefault(ctx, input.CompanyID, line.ItemID, line.LocationID); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "promote default shelf")
		}
	}
	itemID, locationID := line.ItemID, line.LocationID
	err := s.tasks.EnqueueMRP(ctx, payloads.MRPTask{
		CompanyID:  input.CompanyID,
		UserID:     input.UserID,
		ItemID:     &itemID,
		LocationID: &locationID,
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "enqueue mrp after pick")
	}
}

// DeriveStatus counts lines with a picked quantity and maps the transfer to
// Completed when every line is fully picked, In Progress when any line is
// picked and Released otherwise.
func DeriveStatus(lines []models.StockTransferLine) (int, enums.StockTransferStatus) {
	if len(lines) == 0 {
		return 0, enums.StockTransferStatusReleased
	}
	picked, complete := 0, 0
	for _, line := range lines {
		if line.PickedQuantity.IsPositive() {
			picked++
		}
		if !line.PickedQuantity.LessThan(line.Quantity) {
			complete++
		}
	}
	switch {
	case complete == len(lines) && picked > 0:
		return picked, enums.StockTransferStatusCompleted
	case picked > 0:
		return picked, enums.StockTransferStatusInProgress
	default:
		return picked, enums.StockTransferStatusReleased
	}
}

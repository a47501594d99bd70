package shelves

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/internal/ledger"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// Resolver picks the shelf stock should be put away to or taken from.
type Resolver interface {
	Resolve(ctx context.Context, companyID, itemID, locationID uuid.UUID, explicit *uuid.UUID) (*uuid.UUID, error)
	PromoteDefault(ctx context.Context, companyID, itemID, locationID uuid.UUID) (bool, error)
}

type balanceReader interface {
	PositiveShelfBalances(ctx context.Context, companyID, itemID, locationID uuid.UUID) ([]ledger.ShelfBalance, error)
}

type Service struct {
	repo     Repository
	balances balanceReader
	logg     *logger.Logger
}

func NewService(repo Repository, balances balanceReader, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shelf repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("ledger balances required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, balances: balances, logg: logg}, nil
}

// Resolve returns explicit when set, then the configured pick default, then the
// shelf holding the most stock. A nil result means unassigned and is not an error.
func (s *Service) Resolve(ctx context.Context, companyID, itemID, locationID uuid.UUID, explicit *uuid.UUID) (*uuid.UUID, error) {
	if explicit != nil && *explicit != uuid.Nil {
		shelf := *explicit
		return &shelf, nil
	}

	pm, err := s.repo.FindPickMethod(ctx, companyID, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("load pick method: %w", err)
	}
	if pm != nil && pm.DefaultShelfID != nil {
		shelf := *pm.DefaultShelfID
		return &shelf, nil
	}

	balances, err := s.balances.PositiveShelfBalances(ctx, companyID, itemID, locationID)
	if err != nil {
		return nil, fmt.Errorf("load shelf balances: %w", err)
	}
	if len(balances) == 0 {
		return nil, nil
	}
	shelf := balances[0].ShelfID
	return &shelf, nil
}

// PromoteDefault makes the only shelf holding stock the pick default when none
// is configured. Two transfers to different shelves racing here may both see a
// single shelf; the first write wins and the second is a no-op.
func (s *Service) PromoteDefault(ctx context.Context, companyID, itemID, locationID uuid.UUID) (bool, error) {
	pm, err := s.repo.FindPickMethod(ctx, companyID, itemID, locationID)
	if err != nil {
		return false, fmt.Errorf("load pick method: %w", err)
	}
	if pm != nil && pm.DefaultShelfID != nil {
		return false, nil
	}

	balances, err := s.balances.PositiveShelfBalances(ctx, companyID, itemID, locationID)
	if err != nil {
		return false, fmt.Errorf("load shelf balances: %w", err)
	}
	if len(balances) != 1 {
		return false, nil
	}

	promoted, err := s.repo.SetDefaultIfUnset(ctx, companyID, itemID, locationID, balances[0].ShelfID)
	if err != nil {
		return false, fmt.Errorf("set default shelf: %w", err)
	}
	if promoted {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":     itemID.String(),
			"location_id": locationID.String(),
			"shelf_id":    balances[0].ShelfID.String(),
		})
		s.logg.Info(logCtx, "default shelf promoted")
	}
	return promoted, nil
}

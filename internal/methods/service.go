package methods

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
	"github.com/angelmondragon/mesflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

// maxTreeDepth bounds nested Make materials; deeper trees are treated as cycles.
const maxTreeDepth = 16

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemToJobInput identifies the job receiving a copy of the item's method tree.
type ItemToJobInput struct {
	CompanyID          uuid.UUID
	JobID              uuid.UUID
	ItemID             uuid.UUID
	ProductionQuantity decimal.Decimal
}

// Service copies item method trees onto jobs and keeps job requirements current.
type Service struct {
	db   txRunner
	repo Repository
}

func NewService(db txRunner, repo Repository) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("methods repository required")
	}
	return &Service{db: db, repo: repo}, nil
}

// ItemToJob copies the active make method of the item, its operations and
// every nested Make material, in one transaction. The root job make method is
// created even when the item has no active method.
func (s *Service) ItemToJob(ctx context.Context, input ItemToJobInput) (*models.JobMakeMethod, error) {
	if input.CompanyID == uuid.Nil || input.JobID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company, job and item are required")
	}
	var root *models.JobMakeMethod
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		c := &treeCopier{repo: s.repo.WithTx(tx), input: input, visiting: map[uuid.UUID]bool{}}
		var err error
		root, err = c.copy(ctx, input.ItemID, nil, decimal.NewFromInt(1), input.ProductionQuantity, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

type treeCopier struct {
	repo     Repository
	input    ItemToJobInput
	visiting map[uuid.UUID]bool
}

func (c *treeCopier) copy(ctx context.Context, itemID uuid.UUID, parentMaterialID *uuid.UUID, perParent, parentQty decimal.Decimal, depth int) (*models.JobMakeMethod, error) {
	if depth > maxTreeDepth || c.visiting[itemID] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("method tree of item %s is cyclic or too deep", c.input.ItemID))
	}
	c.visiting[itemID] = true
	defer delete(c.visiting, itemID)

	method, err := c.repo.ActiveMakeMethod(ctx, c.input.CompanyID, itemID)
	if err != nil {
		return nil, fmt.Errorf("load make method: %w", err)
	}

	jmm := &models.JobMakeMethod{
		ID:                uuid.New(),
		CompanyID:         c.input.CompanyID,
		JobID:             c.input.JobID,
		ParentMaterialID:  parentMaterialID,
		ItemID:            itemID,
		QuantityPerParent: perParent,
	}
	if method != nil {
		jmm.MakeMethodID = &method.ID
	}
	if err := c.repo.CreateJobMakeMethod(ctx, jmm); err != nil {
		return nil, fmt.Errorf("create job make method: %w", err)
	}
	if method == nil {
		return jmm, nil
	}

	sources, err := c.repo.Materials(ctx, c.input.CompanyID, method.ID)
	if err != nil {
		return nil, fmt.Errorf("load method materials: %w", err)
	}
	materials := make([]models.JobMaterial, 0, len(sources))
	for _, src := range sources {
		materials = append(materials, models.JobMaterial{
			ID:                uuid.New(),
			CompanyID:         c.input.CompanyID,
			JobID:             c.input.JobID,
			JobMakeMethodID:   jmm.ID,
			ItemID:            src.ItemID,
			MethodType:        src.MethodType,
			QuantityPerParent: src.Quantity,
			EstimatedQuantity: src.Quantity.Mul(parentQty),
			QuantityIssued:    decimal.Zero,
			UnitOfMeasureCode: src.UnitOfMeasureCode,
			Order:             src.Order,
		})
	}
	if err := c.repo.CreateJobMaterials(ctx, materials); err != nil {
		return nil, fmt.Errorf("create job materials: %w", err)
	}

	ops, err := c.repo.Operations(ctx, c.input.CompanyID, method.ID)
	if err != nil {
		return nil, fmt.Errorf("load method operations: %w", err)
	}
	operations := make([]models.JobOperation, 0, len(ops))
	for _, op := range ops {
		operations = append(operations, models.JobOperation{
			ID:              uuid.New(),
			CompanyID:       c.input.CompanyID,
			JobID:           c.input.JobID,
			JobMakeMethodID: jmm.ID,
			Order:           op.Order,
			Description:     op.Description,
			ProcessID:       op.ProcessID,
			SetupTime:       op.SetupTime,
			LaborTime:       op.LaborTime,
			MachineTime:     op.MachineTime,
			Status:          "Todo",
		})
	}
	if err := c.repo.CreateJobOperations(ctx, operations); err != nil {
		return nil, fmt.Errorf("create job operations: %w", err)
	}

	for i := range materials {
		if materials[i].MethodType != enums.MethodTypeMake {
			continue
		}
		parent := materials[i].ID
		if _, err := c.copy(ctx, materials[i].ItemID, &parent, materials[i].QuantityPerParent, materials[i].EstimatedQuantity, depth+1); err != nil {
			return nil, err
		}
	}
	return jmm, nil
}

// RecalculateJob rewrites estimated_quantity of every material of the job.
// Root materials scale with quantity plus scrap; materials of a nested
// make method scale with the estimate of the material that owns it. It
// returns the number of materials whose estimate changed.
func (s *Service) RecalculateJob(ctx context.Context, job models.Job) (int, error) {
	changed := 0
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		makeMethods, err := repo.JobMakeMethods(ctx, job.CompanyID, job.ID)
		if err != nil {
			return fmt.Errorf("load job make methods: %w", err)
		}
		materials, err := repo.JobMaterials(ctx, job.CompanyID, job.ID)
		if err != nil {
			return fmt.Errorf("load job materials: %w", err)
		}

		estimates, err := EstimateRequirements(job.ProductionQuantity(), makeMethods, materials)
		if err != nil {
			return err
		}
		for _, material := range materials {
			next := estimates[material.ID]
			if next.Equal(material.EstimatedQuantity) {
				continue
			}
			if err := repo.UpdateEstimatedQuantity(ctx, job.CompanyID, material.ID, next); err != nil {
				return fmt.Errorf("update material %s: %w", material.ID, err)
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// EstimateRequirements computes the estimated quantity of each material keyed
// by material id.
func EstimateRequirements(production decimal.Decimal, makeMethods []models.JobMakeMethod, materials []models.JobMaterial) (map[uuid.UUID]decimal.Decimal, error) {
	methodByID := make(map[uuid.UUID]models.JobMakeMethod, len(makeMethods))
	for _, m := range makeMethods {
		methodByID[m.ID] = m
	}
	materialByID := make(map[uuid.UUID]models.JobMaterial, len(materials))
	for _, m := range materials {
		materialByID[m.ID] = m
	}

	methodQty := map[uuid.UUID]decimal.Decimal{}
	var quantityOf func(methodID uuid.UUID, depth int) (decimal.Decimal, error)
	quantityOf = func(methodID uuid.UUID, depth int) (decimal.Decimal, error) {
		if qty, ok := methodQty[methodID]; ok {
			return qty, nil
		}
		if depth > maxTreeDepth {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "job method tree is cyclic or too deep")
		}
		method, ok := methodByID[methodID]
		if !ok {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("job material references missing make method %s", methodID))
		}
		qty := production
		if method.ParentMaterialID != nil {
			parent, ok := materialByID[*method.ParentMaterialID]
			if !ok {
				return decimal.Zero, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("make method %s references missing material", methodID))
			}
			parentMethodQty, err := quantityOf(parent.JobMakeMethodID, depth+1)
			if err != nil {
				return decimal.Zero, err
			}
			qty = parent.QuantityPerParent.Mul(parentMethodQty)
		}
		methodQty[methodID] = qty
		return qty, nil
	}

	estimates := make(map[uuid.UUID]decimal.Decimal, len(materials))
	for _, material := range materials {
		qty, err := quantityOf(material.JobMakeMethodID, 0)
		if err != nil {
			return nil, err
		}
		estimates[material.ID] = material.QuantityPerParent.Mul(qty)
	}
	return estimates, nil
}

// DeleteJobTree removes the copied tree of a job. Kanban fulfillment calls it
// before deleting a job whose tree copy failed.
func (s *Service) DeleteJobTree(ctx context.Context, companyID, jobID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteJobTree(ctx, companyID, jobID)
	})
}

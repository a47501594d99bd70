package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/api/validators"
	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
	"github.com/angelmondragon/mesflow-backend/pkg/outbox/payloads"
)

type MRPQueue interface {
	EnqueueMRP(ctx context.Context, task payloads.MRPTask) error
}

type mrpRunRequest struct {
	JobID      string `json:"jobId" validate:"omitempty,uuid"`
	ItemID     string `json:"itemId" validate:"omitempty,uuid"`
	LocationID string `json:"locationId" validate:"omitempty,uuid"`
	Async      bool   `json:"async"`
}

type mrpRunResponse struct {
	Scope       string     `json:"scope"`
	Queued      bool       `json:"queued"`
	PeriodStart *time.Time `json:"periodStart,omitempty"`
	Keys        int        `json:"keys"`
	Rows        int        `json:"rows"`
}

// MRPRun recalculates suggested actions for a job, an item at a location, or
// the whole company. With async set the run is queued for the worker.
func MRPRun(runner mrp.Runner, queue MRPQueue, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil || queue == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "mrp service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body mrpRunRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		scope, err := mrpScope(actor.CompanyID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.Async {
			err := queue.EnqueueMRP(r.Context(), payloads.MRPTask{
				Type:       payloads.TaskMRP,
				CompanyID:  scope.CompanyID,
				UserID:     actor.UserID,
				JobID:      scope.JobID,
				ItemID:     scope.ItemID,
				LocationID: scope.LocationID,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue mrp run"))
				return
			}
			responses.WriteSuccessStatus(w, http.StatusAccepted, mrpRunResponse{Scope: scope.Kind(), Queued: true})
			return
		}

		result, err := runner.Run(r.Context(), scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		periodStart := result.PeriodStart
		responses.WriteSuccess(w, mrpRunResponse{
			Scope:       scope.Kind(),
			PeriodStart: &periodStart,
			Keys:        result.Keys,
			Rows:        result.Rows,
		})
	}
}

func mrpScope(companyID uuid.UUID, body mrpRunRequest) (mrp.Scope, error) {
	scope := mrp.Scope{CompanyID: companyID}
	var err error
	if scope.JobID, err = validators.ParseOptionalUUID(body.JobID, "jobId"); err != nil {
		return scope, err
	}
	if scope.ItemID, err = validators.ParseOptionalUUID(body.ItemID, "itemId"); err != nil {
		return scope, err
	}
	if scope.LocationID, err = validators.ParseOptionalUUID(body.LocationID, "locationId"); err != nil {
		return scope, err
	}
	if scope.JobID != nil && (scope.ItemID != nil || scope.LocationID != nil) {
		return scope, pkgerrors.New(pkgerrors.CodeValidation, "scope is either a job or an item at a location")
	}
	return scope, nil
}

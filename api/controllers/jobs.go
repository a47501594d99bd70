package controllers

import (
	"net/http"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/api/validators"
	"github.com/angelmondragon/mesflow-backend/internal/jobs"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

type jobStatusRequest struct {
	TargetStatus                     string            `json:"targetStatus" validate:"required"`
	ScheduleRequested                bool              `json:"scheduleRequested"`
	SelectedPurchaseOrdersBySupplier map[string]string `json:"selectedPurchaseOrdersBySupplier"`
}

// JobStatus requests a job transition. Unknown statuses are rejected by the
// state machine so the allowed set lives in one place.
func JobStatus(svc jobs.StateMachine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "job service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		jobID, err := validators.ParseUUIDParam(r, "jobId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body jobStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RequestTransition(r.Context(), jobs.TransitionInput{
			JobID:                    jobID,
			TargetStatus:             body.TargetStatus,
			ScheduleRequested:        body.ScheduleRequested,
			PurchaseOrdersBySupplier: body.SelectedPurchaseOrdersBySupplier,
			CompanyID:                actor.CompanyID,
			UserID:                   actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

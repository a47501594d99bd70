package controllers

import (
	"net/http"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/api/validators"
	"github.com/angelmondragon/mesflow-backend/internal/replenishment"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// KanbanFulfill turns a kanban scan into a job or purchase order line and
// returns where the client should go next.
func KanbanFulfill(svc replenishment.Fulfiller, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "replenishment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kanbanID, err := validators.ParseUUIDParam(r, "kanbanId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ref, err := svc.FulfillKanban(r.Context(), replenishment.FulfillInput{
			KanbanID:  kanbanID,
			CompanyID: actor.CompanyID,
			UserID:    actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ref)
	}
}

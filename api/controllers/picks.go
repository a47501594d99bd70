package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mesflow-backend/api/responses"
	"github.com/angelmondragon/mesflow-backend/api/validators"
	"github.com/angelmondragon/mesflow-backend/internal/fulfillment"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

type pickRequest struct {
	PickedQuantity *decimal.Decimal `json:"pickedQuantity" validate:"required,decimal_gte0"`
	LocationID     string           `json:"locationId" validate:"required,uuid"`
}

// StockTransferLinePick records the picked quantity of a transfer line and
// posts the matching ledger movement.
func StockTransferLinePick(svc fulfillment.Picker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lineID, err := validators.ParseUUIDParam(r, "lineId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body pickRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		locationID, err := uuid.Parse(body.LocationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid locationId"))
			return
		}

		result, err := svc.Pick(r.Context(), fulfillment.PickInput{
			TransferLineID: lineID,
			PickedQuantity: *body.PickedQuantity,
			LocationID:     locationID,
			CompanyID:      actor.CompanyID,
			UserID:         actor.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

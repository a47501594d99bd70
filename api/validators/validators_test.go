package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

type pickBody struct {
	LocationID string `json:"locationId" validate:"required,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=Draft Ready"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"locationId":"nope","status":"Later"}`))
	var body pickBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details, ok := pkgerrors.As(err).Details().(map[string]string)
	require.True(t, ok)
	require.Equal(t, "must be a uuid", details["locationId"])
	require.Equal(t, "must be one of Draft Ready", details["status"])
}

type quantityBody struct {
	Quantity *decimal.Decimal `json:"quantity" validate:"required,decimal_gte0"`
}

func TestDecodeJSONBodyChecksDecimalSign(t *testing.T) {
	decode := func(raw string) error {
		var body quantityBody
		return DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw)), &body)
	}
	require.NoError(t, decode(`{"quantity":"2.5"}`))
	require.NoError(t, decode(`{"quantity":0}`))

	err := decode(`{"quantity":"-1"}`)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, map[string]string{"quantity": "must not be negative"}, pkgerrors.As(err).Details())

	err = decode(`{}`)
	require.Equal(t, map[string]string{"quantity": "is required"}, pkgerrors.As(err).Details())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"locationId":"`+uuid.NewString()+`","extra":1}`))
	var body pickBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("jobId", id.String())
	rc.URLParams.Add("lineId", "not-a-uuid")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "jobId")
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = ParseUUIDParam(req, "lineId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = ParseUUIDParam(req, "kanbanId")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseOptionalUUID(t *testing.T) {
	got, err := ParseOptionalUUID("  ", "itemId")
	require.NoError(t, err)
	require.Nil(t, got)

	id := uuid.New()
	got, err = ParseOptionalUUID(id.String(), "itemId")
	require.NoError(t, err)
	require.Equal(t, id, *got)

	_, err = ParseOptionalUUID("x", "itemId")
	require.Error(t, err)
}

func TestDecodeJSONBodyTreatsEmptyBodyAsObject(t *testing.T) {
	var body struct {
		Async bool `json:"async"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeJSONBody(req, &body))
	require.False(t, body.Async)

	var required pickBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(" ")), &required)
	details := pkgerrors.As(err).Details().(map[string]string)
	require.Equal(t, "is required", details["locationId"])
}

func TestDecodeJSONBodyRejectsTrailingObjects(t *testing.T) {
	payload := `{"locationId":"` + uuid.NewString() + `"}{"locationId":"x"}`
	var body pickBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)), &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	payload := `{"locationId":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	var body pickBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)), &body)
	require.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

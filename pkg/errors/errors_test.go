package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeNotActive, status: http.StatusUnprocessableEntity, publicMsg: "replenishment signal is not active"},
		{code: CodeUnsupported, status: http.StatusUnprocessableEntity, publicMsg: "unsupported replenishment system", detailsOK: true},
		{code: CodeCompensation, status: http.StatusInternalServerError, publicMsg: "operation partially applied; manual reconciliation required", detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeNotActive, "kanban inactive")
	outer := fmt.Errorf("fulfill: %w", inner)
	if !IsCode(outer, CodeNotActive) {
		t.Fatalf("expected IsCode to find NOT_ACTIVE through wrapping")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("did not expect NOT_FOUND")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("untyped errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeCompensation, stdErrors.New("delete failed"), "ledger rollback")
	d := Dump(err)
	if d.Code != CodeCompensation {
		t.Fatalf("expected compensation code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	if d.Postgres != nil {
		t.Fatalf("expected no postgres fields for a plain error")
	}
}

func TestDumpReadsPostgresErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_jobs_readable_id", TableName: "jobs"}
	d := Dump(Wrap(CodeConflict, fmt.Errorf("insert job: %w", pgErr), "job exists"))
	if d.Postgres == nil || d.Postgres.Constraint != "ux_jobs_readable_id" {
		t.Fatalf("expected constraint from pgconn error, got %+v", d.Postgres)
	}

	fields := d.Fields()
	if fields["pg_code"] != "23505" || fields["pg_table"] != "jobs" {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_detail"]; ok {
		t.Fatalf("empty postgres values must be omitted")
	}
}

func TestPublicMessage(t *testing.T) {
	if got := New(CodeNotActive, "kanban is inactive").PublicMessage(); got != "kanban is inactive" {
		t.Fatalf("expected domain message, got %q", got)
	}
	if got := New(CodeDependency, "redis dial tcp 10.0.0.3").PublicMessage(); got != "dependency unavailable" {
		t.Fatalf("dependency detail must not leak, got %q", got)
	}
	if got := New(CodeValidation, "").PublicMessage(); got != "validation failed" {
		t.Fatalf("expected fallback message, got %q", got)
	}
}

func TestRetryable(t *testing.T) {
	if Retryable(nil) {
		t.Fatal("nil is not retryable")
	}
	if !Retryable(stdErrors.New("connection reset")) {
		t.Fatal("untyped errors are transient")
	}
	if !Retryable(fmt.Errorf("wrap: %w", New(CodeDependency, "scheduler down"))) {
		t.Fatal("dependency failures are retryable")
	}
	if Retryable(New(CodeCompensation, "rollback failed")) {
		t.Fatal("compensation failures need a human")
	}
}

package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	want := map[Code]Metadata{
		CodeValidation:    {HTTPStatus: 400, PublicMessage: "validation failed", DetailsAllowed: true},
		CodeUnauthorized:  {HTTPStatus: 401, PublicMessage: "authentication required"},
		CodeForbidden:     {HTTPStatus: 403, PublicMessage: "access denied"},
		CodeNotFound:      {HTTPStatus: 404, PublicMessage: "resource not found"},
		CodeConflict:      {HTTPStatus: 409, PublicMessage: "conflict detected"},
		CodeIdempotency:   {HTTPStatus: 409, PublicMessage: "idempotency key reused", DetailsAllowed: true},
		CodeStateConflict: {HTTPStatus: 422, PublicMessage: "state transition disallowed", DetailsAllowed: true},
		CodeRateLimit:     {HTTPStatus: 429, PublicMessage: "rate limit exceeded"},
		CodeInternal:      {HTTPStatus: 500, PublicMessage: "internal server error", Retryable: true},
		CodeDependency:    {HTTPStatus: 503, PublicMessage: "dependency unavailable", Retryable: true, DetailsAllowed: true},
	}

	for code, expected := range want {
		if got := MetadataFor(code); got != expected {
			t.Fatalf("code %s: expected %+v got %+v", code, expected, got)
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

func TestCommerceCodesMapToClientErrors(t *testing.T) {
	codes := []Code{
		CodeProductUnavailable,
		CodeCouponInvalid,
		CodeCouponExpired,
		CodeCouponLimitReached,
		CodeMinimumPurchaseNotMet,
		CodeInvalidDeliveryArea,
		CodeInvalidDeliverySlot,
		CodeSlotCapacityExceeded,
		CodeBelowMinimumOrder,
		CodeInsufficientStock,
		CodeInvalidStatusTransition,
		CodeOrderNotCancellable,
		CodeEmptyCart,
	}
	for _, code := range codes {
		meta := MetadataFor(code)
		if meta.HTTPStatus < 400 || meta.HTTPStatus >= 500 {
			t.Fatalf("code %s should map to a client error, got %d", code, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", code)
		}
	}
}

func TestIsMatchesWrappedCode(t *testing.T) {
	err := fmt.Errorf("checkout: %w", New(CodeEmptyCart, "no items"))
	if !Is(err, CodeEmptyCart) {
		t.Fatalf("expected wrapped code to match")
	}
	if Is(err, CodeInternal) {
		t.Fatalf("did not expect internal code to match")
	}
	if Is(nil, CodeEmptyCart) {
		t.Fatalf("nil error should never match")
	}
}

func TestDiagnoseOmitsPostgresFieldsWithoutPGError(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("boom"), "loading cart")
	fields := Diagnose(err).Fields()

	if fields["error_code"] != string(CodeInternal) {
		t.Fatalf("unexpected error code %v", fields["error_code"])
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg fields should be absent: %v", fields)
	}
	chain, _ := fields["error_chain"].([]string)
	if len(chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", chain)
	}
}

func TestDiagnoseReadsPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key", TableName: "orders"}
	fields := Diagnose(fmt.Errorf("insert order: %w", pgErr)).Fields()

	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "orders_order_number_key" {
		t.Fatalf("unexpected pg fields %v", fields)
	}
	if _, ok := fields["pg_column"]; ok {
		t.Fatalf("empty pg column should be omitted")
	}
}

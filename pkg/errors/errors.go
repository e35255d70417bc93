package errors

import (
	stdErrors "errors"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// Commerce failure kinds raised by the cart, checkout, order and inventory services.
const (
	CodeProductUnavailable      Code = "PRODUCT_UNAVAILABLE"
	CodeCouponInvalid           Code = "COUPON_INVALID"
	CodeCouponExpired           Code = "COUPON_EXPIRED"
	CodeCouponLimitReached      Code = "COUPON_LIMIT_REACHED"
	CodeMinimumPurchaseNotMet   Code = "MINIMUM_PURCHASE_NOT_MET"
	CodeInvalidDeliveryArea     Code = "INVALID_DELIVERY_AREA"
	CodeInvalidDeliverySlot     Code = "INVALID_DELIVERY_SLOT"
	CodeSlotCapacityExceeded    Code = "SLOT_CAPACITY_EXCEEDED"
	CodeBelowMinimumOrder       Code = "BELOW_MINIMUM_ORDER"
	CodeInsufficientStock       Code = "INSUFFICIENT_STOCK"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeOrderNotCancellable     Code = "ORDER_NOT_CANCELLABLE"
	CodeEmptyCart               Code = "EMPTY_CART"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func status(code int, public string) Metadata {
	return Metadata{HTTPStatus: code, PublicMessage: public}
}

func (m Metadata) withDetails() Metadata {
	m.DetailsAllowed = true
	return m
}

func (m Metadata) retryable() Metadata {
	m.Retryable = true
	return m
}

func unprocessable(public string) Metadata {
	return status(http.StatusUnprocessableEntity, public)
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    status(http.StatusBadRequest, "validation failed").withDetails(),
	CodeUnauthorized:  status(http.StatusUnauthorized, "authentication required"),
	CodeForbidden:     status(http.StatusForbidden, "access denied"),
	CodeNotFound:      status(http.StatusNotFound, "resource not found"),
	CodeConflict:      status(http.StatusConflict, "conflict detected"),
	CodeStateConflict: unprocessable("state transition disallowed").withDetails(),
	CodeIdempotency:   status(http.StatusConflict, "idempotency key reused").withDetails(),
	CodeRateLimit:     status(http.StatusTooManyRequests, "rate limit exceeded"),
	CodeInternal:      status(http.StatusInternalServerError, "internal server error").retryable(),
	CodeDependency:    status(http.StatusServiceUnavailable, "dependency unavailable").retryable().withDetails(),

	CodeProductUnavailable:      unprocessable("product not found or unavailable").withDetails(),
	CodeCouponInvalid:           unprocessable("invalid coupon code"),
	CodeCouponExpired:           unprocessable("coupon has expired"),
	CodeCouponLimitReached:      unprocessable("coupon usage limit reached"),
	CodeMinimumPurchaseNotMet:   unprocessable("minimum purchase amount not met").withDetails(),
	CodeInvalidDeliveryArea:     unprocessable("invalid delivery area"),
	CodeInvalidDeliverySlot:     unprocessable("invalid delivery slot"),
	CodeSlotCapacityExceeded:    status(http.StatusConflict, "delivery slot is fully booked for the selected date"),
	CodeBelowMinimumOrder:       unprocessable("order is below the area minimum").withDetails(),
	CodeInsufficientStock:       unprocessable("insufficient stock").withDetails(),
	CodeInvalidStatusTransition: unprocessable("status transition not allowed").withDetails(),
	CodeOrderNotCancellable:     unprocessable("order cannot be cancelled"),
	CodeEmptyCart:               unprocessable("cart is empty"),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every layer returns. Only message and details
// are ever shown to clients; the cause stays in logs.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Code is CodeInternal for a nil receiver so callers can skip nil checks.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AttributionErrorBadInput         = "ATTRIB_BAD_INPUT"
	AttributionErrorBadSignature     = "ATTRIB_BAD_SIGNATURE"
	AttributionErrorSecretMissing    = "ATTRIB_SECRET_MISSING"
	AttributionErrorNotFound         = "ATTRIB_NOT_FOUND"
	AttributionErrorConflict         = "ATTRIB_CONFLICT"
	AttributionErrorProcessorFailure = "ATTRIB_PROCESSOR_FAILURE"
	AttributionErrorInternal         = "ATTRIB_INTERNAL_ERROR"
)

// SkipError terminates a delivery without recording anything. It is a
// business outcome, not a failure: the webhook response is 200 with the
// reason as body so the processor never retries it.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "core: delivery skipped"
	}
	return e.Reason
}

func Skipf(format string, args ...any) *SkipError {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// SkipReason extracts the skip reason when err is (or wraps) a SkipError.
func SkipReason(err error) (string, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Error(), true
	}
	return "", false
}

func attributionErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAttributionErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrClickNotFound),
		errors.Is(err, ErrLeadNotFound),
		errors.Is(err, ErrLinkNotFound),
		errors.Is(err, ErrDiscountNotFound),
		errors.Is(err, ErrCommissionNotFound):
		return newAttributionError(err.Error(), goerrors.CategoryNotFound, AttributionErrorNotFound)
	case errors.Is(err, ErrInvalidCommissionStatusTransition):
		return newAttributionError(err.Error(), goerrors.CategoryConflict, AttributionErrorConflict)
	case errors.Is(err, ErrInvalidMode):
		return newAttributionError(err.Error(), goerrors.CategoryBadInput, AttributionErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newAttributionError(err.Error(), goerrors.CategoryAuth, AttributionErrorBadSignature)
	case strings.Contains(msg, "secret"):
		return newAttributionError(err.Error(), goerrors.CategoryAuth, AttributionErrorSecretMissing)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "malformed"):
		return newAttributionError(err.Error(), goerrors.CategoryBadInput, AttributionErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAttributionErrorEnvelope(mapped)
}

// MapError wraps err into the module's go-errors envelope with a category,
// an HTTP status, and a text code.
func MapError(err error) *goerrors.Error {
	return attributionErrorMapper(err)
}

func newAttributionError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAttributionErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAttributionErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = attributionHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAttributionTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAttributionTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AttributionErrorBadInput
	case goerrors.CategoryNotFound:
		return AttributionErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AttributionErrorBadSignature
	case goerrors.CategoryConflict:
		return AttributionErrorConflict
	case goerrors.CategoryExternal:
		return AttributionErrorProcessorFailure
	default:
		return AttributionErrorInternal
	}
}

func attributionHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

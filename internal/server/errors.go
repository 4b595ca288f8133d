package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicepadi/internal/auth/domain"
	bankaccountdomain "github.com/smallbiznis/invoicepadi/internal/bankaccount/domain"
	carddomain "github.com/smallbiznis/invoicepadi/internal/card/domain"
	customerdomain "github.com/smallbiznis/invoicepadi/internal/customer/domain"
	entitlementdomain "github.com/smallbiznis/invoicepadi/internal/entitlement/domain"
	entitydomain "github.com/smallbiznis/invoicepadi/internal/entity/domain"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicepadi/internal/payment/domain"
	plandomain "github.com/smallbiznis/invoicepadi/internal/plan/domain"
	"github.com/smallbiznis/invoicepadi/internal/providers/paystack"
	"github.com/smallbiznis/invoicepadi/internal/providers/whatsapp"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"github.com/smallbiznis/invoicepadi/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrFeatureNotAvailable = errors.New("feature_not_available")
	ErrInternal            = errors.New("internal_error")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrRateLimited         = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var limitErr *entitlementdomain.LimitExceededError
	if errors.As(err, &limitErr) {
		return http.StatusForbidden, errorPayload{
			Type:    "limit_exceeded",
			Message: limitErr.Error(),
		}
	}

	var blocked *subscriptiondomain.DowngradeBlockedError
	if errors.As(err, &blocked) {
		return http.StatusBadRequest, errorPayload{
			Type:    "downgrade_blocked",
			Message: blocked.Error(),
		}
	}
	if errors.Is(err, subscriptiondomain.ErrNotADowngrade) {
		return http.StatusBadRequest, errorPayload{
			Type:    "not_a_downgrade",
			Message: "the target plan costs the same or more than the current plan; upgrade with payment instead",
		}
	}

	var dup *entitydomain.DuplicateError
	if errors.As(err, &dup) {
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_resource",
			Message: dup.Error(),
			Errors: []ValidationError{
				{Field: dup.Field, Code: "duplicate", Message: dup.Error()},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: validationErrorMessage(err, code),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(err, code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrMissingToken),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, entitydomain.ErrInvalidCredentials),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrFeatureNotAvailable):
		return http.StatusForbidden, errorPayload{
			Type:    "feature_not_available",
			Message: "this feature is not available on your current plan",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, carddomain.ErrReferenceEntityMismatch),
		errors.Is(err, subscriptiondomain.ErrIntentMismatch):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, invoicedomain.ErrInvoiceAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "invoice is already paid",
		}
	case errors.Is(err, invoicedomain.ErrPaymentLinkMissing):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "invoice has no payment link yet",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, paystack.ErrUpstreamUnavailable),
		errors.Is(err, bankaccountdomain.ErrSubaccountRejected):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_unavailable",
			Message: upstreamMessage(err),
		}
	case errors.Is(err, paystack.ErrNotConfigured),
		errors.Is(err, whatsapp.ErrNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code fields.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 && payload.Errors[0].Code != "" {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return "server", code
	}
	return "client", code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return true
	case isEntityValidationError(err),
		isPlanValidationError(err),
		isCustomerValidationError(err),
		isCardValidationError(err),
		isInvoiceValidationError(err),
		isBankAccountValidationError(err),
		errors.Is(err, subscriptiondomain.ErrInvalidEmail),
		errors.Is(err, whatsapp.ErrInvalidRecipient):
		return true
	default:
		return false
	}
}

func isEntityValidationError(err error) bool {
	switch {
	case errors.Is(err, entitydomain.ErrInvalidName),
		errors.Is(err, entitydomain.ErrInvalidEmail),
		errors.Is(err, entitydomain.ErrInvalidPhone),
		errors.Is(err, entitydomain.ErrInvalidPassword),
		errors.Is(err, entitydomain.ErrInvalidBusinessType),
		errors.Is(err, entitydomain.ErrInvalidEntityID):
		return true
	default:
		return false
	}
}

func isPlanValidationError(err error) bool {
	return errors.Is(err, plandomain.ErrInvalidPlanName)
}

func isCustomerValidationError(err error) bool {
	switch {
	case errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isCardValidationError(err error) bool {
	switch {
	case errors.Is(err, carddomain.ErrInvalidCardID),
		errors.Is(err, carddomain.ErrInvalidAuthorization),
		errors.Is(err, carddomain.ErrInvalidEmail),
		errors.Is(err, carddomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidReference):
		return true
	default:
		return false
	}
}

func isInvoiceValidationError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidItems),
		errors.Is(err, invoicedomain.ErrInvalidCurrency),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidDueDate),
		errors.Is(err, invoicedomain.ErrCustomerRequired),
		errors.Is(err, invoicedomain.ErrInvalidPaymentAmount),
		errors.Is(err, invoicedomain.ErrAmountExceedsTotal),
		errors.Is(err, invoicedomain.ErrCustomerEmailRequired),
		errors.Is(err, invoicedomain.ErrPhoneRequired),
		errors.Is(err, invoicedomain.ErrInvalidStatusFilter):
		return true
	default:
		return false
	}
}

func isBankAccountValidationError(err error) bool {
	switch {
	case errors.Is(err, bankaccountdomain.ErrInvalidBankCode),
		errors.Is(err, bankaccountdomain.ErrInvalidAccountNumber):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, entitydomain.ErrEntityNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, carddomain.ErrCardNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, paymentdomain.ErrTransactionNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicedomain.ErrAmountExceedsTotal):
		return invoicedomain.ErrAmountExceedsTotal.Error()
	case errors.Is(err, whatsapp.ErrInvalidRecipient):
		return "invalid_phone"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasSuffix(code, "_required") {
		return strings.TrimSuffix(code, "_required")
	}
	if code == invoicedomain.ErrAmountExceedsTotal.Error() {
		return "amount"
	}
	return ""
}

func validationErrorMessage(err error, code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case invoicedomain.ErrAmountExceedsTotal.Error():
		return err.Error()
	default:
		return "invalid value"
	}
}

func upstreamMessage(err error) string {
	var rejected *bankaccountdomain.RejectedError
	if errors.As(err, &rejected) {
		return rejected.Error()
	}
	return "payment gateway unavailable"
}

package broker

import (
	"context"
	"errors"
	"fmt"

	"golang-stock-trader/internal/entity"
)

// Broker is the narrow contract the decision core needs from the venue
// adapter. The order admission controller is its only caller on the write
// path; nothing else in the core submits orders.
type Broker interface {
	GetCurrentPrice(ctx context.Context, code string) (float64, error)
	GetBalance(ctx context.Context) (float64, error)
	GetHoldings(ctx context.Context) ([]entity.Holding, error)
	SubmitBuy(ctx context.Context, req entity.OrderRequest) (string, error)
	SubmitSell(ctx context.Context, req entity.OrderRequest) (string, error)
}

// ErrorCode identifies one venue failure mode.
type ErrorCode string

const (
	CodeInsufficientBalance  ErrorCode = "INSUFFICIENT_BALANCE"
	CodeInsufficientQuantity ErrorCode = "INSUFFICIENT_QUANTITY"
	CodeInvalidStock         ErrorCode = "INVALID_STOCK"
	CodeMarketClosed         ErrorCode = "MARKET_CLOSED"
	CodeRateLimited          ErrorCode = "RATE_LIMITED"
	CodeTimeout              ErrorCode = "TIMEOUT"
	CodeTemporaryFailure     ErrorCode = "TEMPORARY_FAILURE"
	CodeUnknown              ErrorCode = "UNKNOWN"
)

// retryable is the one place a venue error code is classified. Quantity and
// balance violations will not fix themselves; retrying them only burns quota.
var retryable = map[ErrorCode]bool{
	CodeInsufficientBalance:  false,
	CodeInsufficientQuantity: false,
	CodeInvalidStock:         false,
	CodeMarketClosed:         false,
	CodeRateLimited:          true,
	CodeTimeout:              true,
	CodeTemporaryFailure:     true,
}

// Error is a classified venue failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a classified venue error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the venue error code, or CodeUnknown for unclassified errors.
func CodeOf(err error) ErrorCode {
	var brokerErr *Error
	if errors.As(err, &brokerErr) {
		return brokerErr.Code
	}
	return CodeUnknown
}

// IsRetryable reports whether a failed submission may be attempted again.
// Unclassified errors (transport glitches and the like) are treated as
// retryable.
func IsRetryable(err error) bool {
	var brokerErr *Error
	if errors.As(err, &brokerErr) {
		return retryable[brokerErr.Code]
	}
	return true
}

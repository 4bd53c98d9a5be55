package resilience

import (
	"context"
	"io"
	"net"
	"syscall"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/provider"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
)

// Classify maps any failure onto an AppError whose code decides retryability.
// Unrecognized errors are treated as fatal internal errors.
func Classify(err error) *errors.AppError {
	if err == nil {
		return nil
	}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var provErr *provider.ProviderError
	if errors.As(err, &provErr) {
		return errors.NewAppError(errors.FromHTTPStatus(provErr.HTTPStatus), "provider rejected request", err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.NewAppError(errors.ErrTimeout, "deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return errors.NewAppError(errors.ErrInternal, "request cancelled", err)
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNREFUSED):
		return errors.NewAppError(errors.ErrNetwork, "connection failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.NewAppError(errors.ErrTimeout, "network timeout", err)
		}
		return errors.NewAppError(errors.ErrNetwork, "network error", err)
	}

	return errors.NewAppError(errors.ErrInternal, "unexpected failure", err)
}

package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/Veraticus/paper-trail/internal/common"
)

var (
	authReasons = map[string]bool{
		"authError":               true,
		"insufficientPermissions": true,
		"invalidCredentials":      true,
	}
	rateLimitReasons = map[string]bool{
		"rateLimitExceeded":     true,
		"userRateLimitExceeded": true,
	}
)

// classifyError maps a Gmail API or transport error onto ErrAuthExpired or
// ErrSearchFailed and decides whether WithRetry should try again.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return common.Permanent(err)
	}
	if errors.Is(err, common.ErrAuthExpired) {
		return common.Permanent(err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return common.Permanent(fmt.Errorf("%w: %w", common.ErrAuthExpired, err))
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return common.Permanent(fmt.Errorf("%w: %w", common.ErrAuthExpired, err))
		case apiErr.Code == http.StatusForbidden && hasReason(apiErr, authReasons):
			return common.Permanent(fmt.Errorf("%w: %w", common.ErrAuthExpired, err))
		case apiErr.Code == http.StatusTooManyRequests || hasReason(apiErr, rateLimitReasons):
			return &common.RetryableError{Err: fmt.Errorf("%w: %w: %w", common.ErrSearchFailed, common.ErrRateLimit, err), Retryable: true}
		case apiErr.Code >= http.StatusInternalServerError:
			return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrSearchFailed, err), Retryable: true}
		default:
			return common.Permanent(fmt.Errorf("%w: %w", common.ErrSearchFailed, err))
		}
	}

	// Transport failures are usually transient.
	return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrSearchFailed, err), Retryable: true}
}

func hasReason(apiErr *googleapi.Error, reasons map[string]bool) bool {
	for _, item := range apiErr.Errors {
		if reasons[item.Reason] {
			return true
		}
	}
	return false
}

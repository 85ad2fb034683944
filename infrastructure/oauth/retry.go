package oauth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// retryDelay is the pause before the single retry of a transient failure
const retryDelay = 250 * time.Millisecond

// StatusError is returned when a provider endpoint answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return "provider returned " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// withRetry runs op once more after a transient failure. Every attempt gets its own timeout.
func withRetry(ctx context.Context, timeout time.Duration, name string, op func(ctx context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), 1), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		log.WithFields(log.Fields{
			"operation": name,
			"attempt":   attempt,
			"error":     err,
		}).Warn("Transient OAuth failure")
		return err
	}, policy)
}

// isTransient reports whether a retry might succeed: network errors, timeouts, 5xx and 429
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	status := 0
	var retrieveErr *oauth2.RetrieveError
	var statusErr *StatusError
	switch {
	case errors.As(err, &retrieveErr) && retrieveErr.Response != nil:
		status = retrieveErr.Response.StatusCode
	case errors.As(err, &statusErr):
		status = statusErr.StatusCode
	}
	return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
}

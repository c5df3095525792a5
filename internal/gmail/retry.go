package gmail

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	apperrors "github.com/seacliff-digital/reportpilot/pkg/errors"
)

// SleepFunc lets tests observe backoff delays without waiting them out.
type SleepFunc func(time.Duration)

// Retrier re-runs Gmail API calls that failed with a rate limit or a
// transient server error, backing off exponentially between attempts.
type Retrier struct {
	maxRetries  int
	backoffBase time.Duration
	sleep       SleepFunc
	logger      *zap.Logger
}

// NewRetrier builds a Retrier. A nil logger disables retry logging.
func NewRetrier(maxRetries int, backoffBase time.Duration, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// WithSleep swaps the sleep implementation, for tests.
func (r *Retrier) WithSleep(sleep SleepFunc) *Retrier {
	clone := *r
	clone.sleep = sleep
	return &clone
}

// Do runs fn, retrying up to maxRetries times on retryable failures. Delays
// double per attempt starting from backoffBase. Non-retryable errors and
// exhausted retries return a translated typed error.
func (r *Retrier) Do(op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if attempt >= r.maxRetries || !retryable(err) {
			return translate(op, err)
		}
		delay := r.backoffBase << attempt
		r.logger.Warn("retrying gmail call",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err))
		r.sleep(delay)
	}
}

// retryable accepts rate limits and transient server errors. Client errors
// such as 401 or 404 never retry.
func retryable(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
}

// translate maps a Gmail API error onto the domain error taxonomy so
// callers can branch without importing googleapi.
func translate(op string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, op)
	}
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return apperrors.Wrap(err, apperrors.ErrRateLimited.Code, apperrors.ErrRateLimited.Status, op)
	case gerr.Code >= http.StatusInternalServerError:
		return apperrors.Wrap(err, apperrors.ErrUnavailable.Code, apperrors.ErrUnavailable.Status, op)
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return apperrors.Wrap(err, apperrors.ErrUnauthorized.Code, apperrors.ErrUnauthorized.Status, op)
	case gerr.Code == http.StatusNotFound:
		return apperrors.Wrap(err, apperrors.ErrNotFound.Code, apperrors.ErrNotFound.Status, op)
	}
	return apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, op)
}

package service

import (
	"errors"

	"github.com/noah-isme/sma-adp-results/internal/engine"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
	"github.com/noah-isme/sma-adp-results/pkg/lock"
)

// engineError maps engine faults onto API errors. Anything unrecognised is
// wrapped as internal with fallback as the message.
func engineError(err error, fallback string) error {
	var cfgErr *engine.ConfigError
	if errors.As(err, &cfgErr) {
		if cfgErr.Code == engine.CodeInvalidWeights {
			return appErrors.Wrap(err, appErrors.ErrInvalidWeights.Code, appErrors.ErrInvalidWeights.Status, cfgErr.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrConfiguration.Code, appErrors.ErrConfiguration.Status, cfgErr.Message)
	}
	var dataErr *engine.DataError
	if errors.As(err, &dataErr) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, dataErr.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}

// lockError maps a failed acquire onto a retryable busy error.
func lockError(err error, resource string, metrics *MetricsService) error {
	if errors.Is(err, lock.ErrLockHeld) {
		metrics.RecordLockContention(resource)
		return appErrors.Clone(appErrors.ErrBusy, resource+" is being processed, retry later")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire "+resource+" lock")
}

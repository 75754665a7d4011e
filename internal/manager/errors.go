package manager

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// UnknownModelError is returned when a model id is not in the registry.
type UnknownModelError struct{ ID string }

func (e *UnknownModelError) Error() string   { return "model not found: " + e.ID }
func (e *UnknownModelError) StatusCode() int { return http.StatusBadRequest }

// ErrUnknownModel constructs an UnknownModelError.
func ErrUnknownModel(id string) error { return &UnknownModelError{ID: id} }

// IsUnknownModel reports whether err indicates a missing model id.
func IsUnknownModel(err error) bool {
	var e *UnknownModelError
	return errors.As(err, &e)
}

// LoadError reports a backend that failed to start. The handle is left
// unloaded so the next request retries the full acquisition.
type LoadError struct {
	Model string
	Err   error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.Model, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }
func (e *LoadError) StatusCode() int {
	if IsDependencyUnavailable(e.Err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// LoadTimeoutError reports a backend that did not pass its readiness check
// within the configured attempt budget.
type LoadTimeoutError struct {
	Model    string
	Attempts int
	Interval time.Duration
}

func (e *LoadTimeoutError) Error() string {
	return fmt.Sprintf("load %s: not ready after %d attempts (interval %s)", e.Model, e.Attempts, e.Interval)
}
func (e *LoadTimeoutError) StatusCode() int { return http.StatusInternalServerError }

// IsLoadFailure reports whether err is a LoadError or LoadTimeoutError.
func IsLoadFailure(err error) bool {
	var le *LoadError
	var te *LoadTimeoutError
	return errors.As(err, &le) || errors.As(err, &te)
}

// InferenceError wraps a failure that happened while a backend was generating.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string   { return fmt.Sprintf("inference %s: %v", e.Model, e.Err) }
func (e *InferenceError) Unwrap() error   { return e.Err }
func (e *InferenceError) StatusCode() int { return http.StatusInternalServerError }

// ReaperError is a per-handle failure during an idle sweep.
type ReaperError struct {
	Model string
	Err   error
}

func (e *ReaperError) Error() string { return fmt.Sprintf("reaper %s: %v", e.Model, e.Err) }
func (e *ReaperError) Unwrap() error { return e.Err }

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ modelID string }

func (e tooBusyError) Error() string   { return "too busy: " + e.modelID }
func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g. llama.cpp
// support not compiled in) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string   { return e.msg }
func (e dependencyUnavailableError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// ErrBackendExited reports a call made to a backend process that is gone.
var ErrBackendExited = errors.New("backend process exited")

// ErrShuttingDown is returned once Shutdown has begun.
var ErrShuttingDown = shuttingDownError{}

type shuttingDownError struct{}

func (shuttingDownError) Error() string   { return "manager is shutting down" }
func (shuttingDownError) StatusCode() int { return http.StatusServiceUnavailable }

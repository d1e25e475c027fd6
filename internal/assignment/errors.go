package assignment

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Domain errors for assignment operations.
var (
	ErrWorkflowBlocked    = errors.New("write blocked by workflow state")
	ErrVariantNotFound    = errors.New("language variant not found")
	ErrLanguageUnresolved = errors.New("language identifier not found")
	ErrContributorUnknown = errors.New("contributor not found in user directory")
	ErrBatchSetup         = errors.New("batch setup failed")
	ErrBatchRunning       = errors.New("a batch is already running")
	ErrNoBatch            = errors.New("no batch has been run")
	ErrNothingToRetry     = errors.New("latest batch has no failed items")
	ErrInvalidPolicy      = errors.New("invalid unresolved contributor policy")
)

// A CMS rejection is attributed to the variant's lifecycle state when its
// message names a distinguished state and a refusal, in any order, or uses
// one of the remediation phrases in blockedPhrases.
var (
	blockedState   = regexp.MustCompile(`(?i)\b(published|scheduled|archived)\b`)
	blockedRefusal = regexp.MustCompile(`(?i)\b(cannot|can ?not|can't|can’t|unable to|not (be )?allowed|not permitted)\b`)
	blockedPhrases = []*regexp.Regexp{
		regexp.MustCompile(`(?i)create (a )?new version`),
		regexp.MustCompile(`(?i)unpublish\w* .*\bfirst\b`),
	}
)

func blockedMessage(text string) bool {
	if blockedState.MatchString(text) && blockedRefusal.MatchString(text) {
		return true
	}
	for _, p := range blockedPhrases {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// classifyWrite wraps err with ErrWorkflowBlocked when it is a CMS rejection
// whose message indicates the lifecycle state forbids the write.
func classifyWrite(err error) error {
	if err == nil || errors.Is(err, ErrWorkflowBlocked) {
		return err
	}
	var apiErr *kontent.APIError
	if !errors.As(err, &apiErr) || !apiErr.Rejected() {
		return err
	}
	if blockedMessage(apiErr.Text()) {
		return fmt.Errorf("%w: %w", ErrWorkflowBlocked, err)
	}
	return err
}

// TransitionError reports that every transition strategy for a state failed.
// Attempts holds one error per strategy, in the order tried.
type TransitionError struct {
	State    State
	Attempts []error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition from %s to draft failed after %d attempt(s): %v",
		e.State, len(e.Attempts), errors.Join(e.Attempts...))
}

func (e *TransitionError) Unwrap() []error {
	return e.Attempts
}

// WriteError reports that the contributor upsert was rejected on every
// language identifier form tried.
type WriteError struct {
	Attempts []error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("contributor write failed after %d attempt(s): %v",
		len(e.Attempts), errors.Join(e.Attempts...))
}

func (e *WriteError) Unwrap() []error {
	return e.Attempts
}

// MapHTTPStatus maps assignment domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	var validationErrs validation.Errors
	if errors.As(err, &validationErrs) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNoBatch) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrBatchRunning) || errors.Is(err, ErrNothingToRetry) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrBatchSetup) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Package assignment bulk-assigns contributors to content item variants. A
// batch resolves contributor emails and the workflow catalog once, then for
// each item inspects the variant's workflow state, moves it to an editable
// step when needed, and replaces its contributor list. Items are processed
// sequentially and each produces exactly one Result.
package assignment

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// CMS is the subset of the CMS client the assignment workflow depends on.
type CMS interface {
	ListUsers(ctx context.Context) ([]kontent.User, error)
	ListLanguages(ctx context.Context) ([]kontent.Language, error)
	ListWorkflows(ctx context.Context) ([]kontent.Workflow, error)
	GetVariant(ctx context.Context, itemID string, lang kontent.LanguageRef) (*kontent.Variant, error)
	ListVariants(ctx context.Context, itemID string) ([]kontent.Variant, error)
	UpsertVariant(ctx context.Context, itemID string, lang kontent.LanguageRef, payload kontent.VariantPayload) (*kontent.Variant, error)
	ChangeWorkflowStep(ctx context.Context, itemID string, lang kontent.LanguageRef, ptr kontent.WorkflowPointer) error
	CreateNewVersion(ctx context.Context, itemID string, lang kontent.LanguageRef) error
	Unpublish(ctx context.Context, itemID string, lang kontent.LanguageRef) error
}

// Request assigns a contributor list to one content item variant.
type Request struct {
	ContentItemID       string   `json:"contentItemId"`
	ContentItemCodename string   `json:"contentItemCodename,omitempty"`
	Language            string   `json:"language"`
	Contributors        []string `json:"contributors"`
}

// Outcome classifies a processed request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeManual  Outcome = "needs-manual-intervention"
)

// Reason is a machine-readable cause attached to unsuccessful results.
type Reason string

const (
	ReasonWorkflowBlocked          Reason = "workflow_blocked"
	ReasonArchivedTransitionFailed Reason = "archived_transition_failed"
	ReasonNotFound                 Reason = "not_found"
	ReasonNetwork                  Reason = "network"
	ReasonMalformedResponse        Reason = "malformed_response"
	ReasonWriteRejected            Reason = "write_rejected"
	ReasonUnresolvedContributor    Reason = "unresolved_contributor"
	ReasonTransitionFailed         Reason = "transition_failed"
	ReasonCanceled                 Reason = "canceled"
	ReasonUnknown                  Reason = "unknown"
)

// Result is the immutable outcome of one Request.
type Result struct {
	ContentItemID              string   `json:"contentItemId"`
	ContentItemCodename        string   `json:"contentItemCodename,omitempty"`
	Language                   string   `json:"language,omitempty"`
	Outcome                    Outcome  `json:"outcome"`
	Success                    bool     `json:"success"`
	RequiresManualIntervention bool     `json:"requiresManualIntervention,omitempty"`
	Reason                     Reason   `json:"reason,omitempty"`
	Message                    string   `json:"message,omitempty"`
	Instructions               string   `json:"instructions,omitempty"`
	Error                      string   `json:"error,omitempty"`
	Contributors               []string `json:"contributors,omitempty"`
}

// Summary counts results by outcome.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Manual    int `json:"manual"`
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomeManual:
			s.Manual++
		default:
			s.Failed++
		}
	}
	return s
}

// ItemSelection identifies one content item variant chosen for assignment.
type ItemSelection struct {
	ID       string `json:"id"`
	Codename string `json:"codename,omitempty"`
	Language string `json:"language"`
}

// Validate requires an item id and a language identifier.
func (s ItemSelection) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Language, validation.Required),
	)
}

// Command is a bulk assignment: every selected item receives the same
// contributor list.
type Command struct {
	Items        []ItemSelection `json:"items"`
	Contributors []string        `json:"contributors"`
}

// Validate requires at least one item and one well-formed contributor email.
func (c Command) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Items, validation.Required),
		validation.Field(&c.Contributors,
			validation.Required,
			validation.Each(validation.Required, is.EmailFormat),
		),
	)
}

// Requests expands the command into one Request per selected item, in order.
func (c Command) Requests() []Request {
	contributors := make([]string, 0, len(c.Contributors))
	for _, email := range c.Contributors {
		contributors = append(contributors, strings.TrimSpace(email))
	}

	requests := make([]Request, 0, len(c.Items))
	for _, item := range c.Items {
		requests = append(requests, Request{
			ContentItemID:       strings.TrimSpace(item.ID),
			ContentItemCodename: item.Codename,
			Language:            strings.TrimSpace(item.Language),
			Contributors:        contributors,
		})
	}
	return requests
}

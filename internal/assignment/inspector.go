package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// State is the lifecycle position of a variant within its workflow.
type State int

const (
	Draft State = iota
	Published
	Scheduled
	Archived
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Published:
		return "published"
	case Scheduled:
		return "scheduled"
	case Archived:
		return "archived"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Classify places the variant's current step relative to the distinguished
// steps of wf by exact id match. Any other step, a missing step, or a nil
// workflow classifies as Draft.
func Classify(v *kontent.Variant, wf *kontent.Workflow) State {
	if v == nil || wf == nil {
		return Draft
	}
	step := v.Pointer().Step
	switch {
	case sameStep(wf.PublishedStep, step):
		return Published
	case sameStep(wf.ScheduledStep, step):
		return Scheduled
	case sameStep(wf.ArchivedStep, step):
		return Archived
	default:
		return Draft
	}
}

func sameStep(s *kontent.WorkflowStep, ref kontent.Reference) bool {
	if s == nil {
		return false
	}
	if ref.ID != "" {
		return s.ID != "" && strings.EqualFold(s.ID, ref.ID)
	}
	return ref.Codename != "" && s.Codename == ref.Codename
}

// StepFallback holds the distinguished step ids used when the variant's
// workflow definition is not available.
type StepFallback struct {
	Published string
	Scheduled string
	Archived  string
}

// Workflow returns a definition carrying only the fallback distinguished steps.
func (f StepFallback) Workflow() *kontent.Workflow {
	wf := &kontent.Workflow{}
	if f.Published != "" {
		wf.PublishedStep = &kontent.WorkflowStep{ID: f.Published}
	}
	if f.Scheduled != "" {
		wf.ScheduledStep = &kontent.WorkflowStep{ID: f.Scheduled}
	}
	if f.Archived != "" {
		wf.ArchivedStep = &kontent.WorkflowStep{ID: f.Archived}
	}
	return wf
}

const zeroWorkflowID = "00000000-0000-0000-0000-000000000000"

// WorkflowCatalog holds the workflow definitions of one batch and the default
// workflow chosen from them.
type WorkflowCatalog struct {
	workflows []kontent.Workflow
	def       *kontent.Workflow
	fallback  *kontent.Workflow
}

// NewWorkflowCatalog indexes workflows and selects the default: the one whose
// id or codename equals preferred, else the zero-id workflow, else codename
// "default", else the first.
func NewWorkflowCatalog(workflows []kontent.Workflow, preferred string, fallback StepFallback) *WorkflowCatalog {
	c := &WorkflowCatalog{
		workflows: workflows,
		fallback:  fallback.Workflow(),
	}
	c.def = c.pickDefault(preferred)
	return c
}

// UnavailableCatalog returns a catalog with no definitions. Every variant is
// classified against the fallback steps and no draft target is known.
func UnavailableCatalog(fallback StepFallback) *WorkflowCatalog {
	return &WorkflowCatalog{fallback: fallback.Workflow()}
}

// Available reports whether any workflow definition was loaded.
func (c *WorkflowCatalog) Available() bool {
	return len(c.workflows) > 0
}

// Default returns the default workflow, or nil when none is available.
func (c *WorkflowCatalog) Default() *kontent.Workflow {
	return c.def
}

// For returns the definition governing ptr: the referenced workflow, else the
// workflow containing the step, else the default, else the fallback steps.
func (c *WorkflowCatalog) For(ptr kontent.WorkflowPointer) *kontent.Workflow {
	if wf := c.find(ptr.Workflow); wf != nil {
		return wf
	}
	if ptr.Step.ID != "" {
		for i := range c.workflows {
			if containsStep(&c.workflows[i], ptr.Step.ID) {
				return &c.workflows[i]
			}
		}
	}
	if c.def != nil {
		return c.def
	}
	return c.fallback
}

// DraftTarget returns the pointer to the canonical draft step of wf, falling
// back to the default workflow's. ok is false when neither has a draft step.
func (c *WorkflowCatalog) DraftTarget(wf *kontent.Workflow) (kontent.WorkflowPointer, bool) {
	for _, candidate := range []*kontent.Workflow{wf, c.def} {
		if candidate == nil || candidate == c.fallback {
			continue
		}
		if step, ok := candidate.DraftTarget(); ok {
			return kontent.WorkflowPointer{
				Workflow: workflowRef(candidate),
				Step:     kontent.Reference{ID: step.ID, Codename: stepCodename(step)},
			}, true
		}
	}
	return kontent.WorkflowPointer{}, false
}

func (c *WorkflowCatalog) pickDefault(preferred string) *kontent.Workflow {
	if len(c.workflows) == 0 {
		return nil
	}
	if preferred != "" {
		if wf := c.find(kontent.Reference{ID: preferred, Codename: preferred}); wf != nil {
			return wf
		}
	}
	for i := range c.workflows {
		if c.workflows[i].ID == zeroWorkflowID {
			return &c.workflows[i]
		}
	}
	for i := range c.workflows {
		if c.workflows[i].Codename == "default" {
			return &c.workflows[i]
		}
	}
	return &c.workflows[0]
}

func (c *WorkflowCatalog) find(ref kontent.Reference) *kontent.Workflow {
	if ref.IsZero() {
		return nil
	}
	for i := range c.workflows {
		wf := &c.workflows[i]
		if ref.ID != "" && strings.EqualFold(wf.ID, ref.ID) {
			return wf
		}
		if ref.Codename != "" && wf.Codename == ref.Codename {
			return wf
		}
	}
	return nil
}

func containsStep(wf *kontent.Workflow, stepID string) bool {
	if wf.IsDistinguished(stepID) {
		return true
	}
	for _, s := range wf.Steps {
		if strings.EqualFold(s.ID, stepID) {
			return true
		}
	}
	return false
}

func workflowRef(wf *kontent.Workflow) kontent.Reference {
	if wf.ID != "" {
		return kontent.Reference{ID: wf.ID}
	}
	return kontent.Reference{Codename: wf.Codename}
}

// stepCodename only carries the codename when the step has no id.
func stepCodename(s kontent.WorkflowStep) string {
	if s.ID != "" {
		return ""
	}
	return s.Codename
}

// Inspection is the workflow position of one variant at the time it was read.
type Inspection struct {
	Variant  *kontent.Variant
	Workflow *kontent.Workflow
	State    State
	Draft    kontent.WorkflowPointer
	HasDraft bool
}

// Inspector reads variants and determines their workflow state.
type Inspector struct {
	cms    CMS
	logger *slog.Logger
}

// NewInspector creates an Inspector.
func NewInspector(cms CMS, logger *slog.Logger) *Inspector {
	return &Inspector{
		cms:    cms,
		logger: logger,
	}
}

// Inspect fetches the variant and classifies it against the workflow that
// governs it.
func (i *Inspector) Inspect(ctx context.Context, itemID string, lang LanguageTarget, catalog *WorkflowCatalog) (*Inspection, error) {
	v, err := i.Fetch(ctx, itemID, lang)
	if err != nil {
		return nil, err
	}

	wf := catalog.For(v.Pointer())
	state := Classify(v, wf)
	draft, ok := catalog.DraftTarget(wf)

	i.logger.Debug("variant inspected",
		"item", itemID,
		"language", lang.Given.String(),
		"state", state.String(),
		"step", v.Pointer().Step.Key(),
	)

	return &Inspection{
		Variant:  v,
		Workflow: wf,
		State:    state,
		Draft:    draft,
		HasDraft: ok,
	}, nil
}

// Fetch reads one variant. The identifier as given is tried first; a
// rejection is retried with the canonical language id, and a 404 falls back to
// listing every variant of the item and matching by language.
func (i *Inspector) Fetch(ctx context.Context, itemID string, lang LanguageTarget) (*kontent.Variant, error) {
	v, err := i.cms.GetVariant(ctx, itemID, lang.Given)
	if err == nil {
		return v, nil
	}

	if canonical, ok := lang.Canonical(); ok && kontent.IsRejection(err) && !errors.Is(err, kontent.ErrNotFound) {
		v, err = i.cms.GetVariant(ctx, itemID, canonical)
		if err == nil {
			return v, nil
		}
	}

	if !errors.Is(err, kontent.ErrNotFound) {
		return nil, fmt.Errorf("get variant %s/%s: %w", itemID, lang.Given, err)
	}

	variants, listErr := i.cms.ListVariants(ctx, itemID)
	if listErr != nil {
		if errors.Is(listErr, kontent.ErrNotFound) {
			return nil, fmt.Errorf("%w: item %s: %w", ErrVariantNotFound, itemID, listErr)
		}
		return nil, fmt.Errorf("list variants of %s: %w", itemID, listErr)
	}

	for idx := range variants {
		if lang.Matches(variants[idx].Language) {
			return &variants[idx], nil
		}
	}
	return nil, fmt.Errorf("%w: item %s has no %s variant: %w", ErrVariantNotFound, itemID, lang.Given, err)
}

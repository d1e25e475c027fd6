package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Target addresses the variant a transition acts on and the step it must
// reach.
type Target struct {
	ItemID   string
	Language LanguageTarget
	Draft    kontent.WorkflowPointer
	HasDraft bool
}

// ref is the language identifier used for workflow calls: the canonical id
// when known.
func (t Target) ref() kontent.LanguageRef {
	if canonical, ok := t.Language.Canonical(); ok {
		return canonical
	}
	return t.Language.Given
}

// Strategy is one path from a non-editable state to a draft-class step.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, current *kontent.Variant, t Target) error
}

// Engine moves variants into an editable state. For each state it tries an
// ordered list of strategies until one succeeds. Only a CMS rejection falls
// through to the next strategy.
type Engine struct {
	cms       CMS
	inspector *Inspector
	table     map[State][]Strategy
	logger    *slog.Logger
}

// NewEngine creates an Engine with the standard transition table:
//
//	Draft               -> none
//	Published/Scheduled -> new version, then unpublish
//	Archived            -> new version
func NewEngine(cms CMS, inspector *Inspector, logger *slog.Logger) *Engine {
	e := &Engine{
		cms:       cms,
		inspector: inspector,
		logger:    logger,
	}
	nv := newVersion{e}
	up := unpublish{e}
	e.table = map[State][]Strategy{
		Published: {nv, up},
		Scheduled: {nv, up},
		Archived:  {nv},
	}
	return e
}

// Strategies returns the strategies tried for state, in order.
func (e *Engine) Strategies(state State) []Strategy {
	return e.table[state]
}

// EnsureEditable returns a variant that may be written. A Draft variant is
// returned unchanged. Otherwise the strategies for the state are applied in
// order and the variant is re-read after the first that succeeds. When every
// strategy fails the error is a *TransitionError carrying each attempt.
func (e *Engine) EnsureEditable(ctx context.Context, insp *Inspection, t Target) (*kontent.Variant, error) {
	strategies := e.table[insp.State]
	if len(strategies) == 0 {
		return insp.Variant, nil
	}

	var attempts []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		err := s.Apply(ctx, insp.Variant, t)
		if err == nil {
			fresh, err := e.inspector.Fetch(ctx, t.ItemID, t.Language)
			if err != nil {
				return nil, fmt.Errorf("re-read after %s: %w", s.Name(), err)
			}
			e.logger.Info("variant moved to draft",
				"item", t.ItemID,
				"from", insp.State.String(),
				"strategy", s.Name(),
			)
			return fresh, nil
		}

		attempts = append(attempts, fmt.Errorf("%s: %w", s.Name(), err))
		e.logger.Warn("transition strategy failed",
			"item", t.ItemID,
			"state", insp.State.String(),
			"strategy", s.Name(),
			"error", err,
		)

		if !kontent.IsRejection(err) {
			break
		}
	}

	return nil, &TransitionError{State: insp.State, Attempts: attempts}
}

// setDraftStep moves the variant to the draft target. When the workflow-only
// endpoint is unavailable the step is set through a full upsert that carries
// the current elements and contributors.
func (e *Engine) setDraftStep(ctx context.Context, current *kontent.Variant, t Target) error {
	if !t.HasDraft {
		return nil
	}

	err := e.cms.ChangeWorkflowStep(ctx, t.ItemID, t.ref(), t.Draft)
	if err == nil {
		return nil
	}

	var apiErr *kontent.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusMethodNotAllowed) {
		e.logger.Debug("workflow endpoint unavailable, setting step by upsert", "item", t.ItemID)
		payload := current.Payload(current.ContributorIDs()).WithWorkflow(t.Draft)
		if _, err = e.cms.UpsertVariant(ctx, t.ItemID, t.ref(), payload); err == nil {
			return nil
		}
	}

	return classifyWrite(fmt.Errorf("change workflow step: %w", err))
}

type newVersion struct{ e *Engine }

func (newVersion) Name() string { return "new_version" }

func (s newVersion) Apply(ctx context.Context, current *kontent.Variant, t Target) error {
	if err := s.e.cms.CreateNewVersion(ctx, t.ItemID, t.ref()); err != nil {
		return classifyWrite(fmt.Errorf("create new version: %w", err))
	}
	return s.e.setDraftStep(ctx, current, t)
}

type unpublish struct{ e *Engine }

func (unpublish) Name() string { return "unpublish" }

func (s unpublish) Apply(ctx context.Context, current *kontent.Variant, t Target) error {
	if err := s.e.cms.Unpublish(ctx, t.ItemID, t.ref()); err != nil {
		return classifyWrite(fmt.Errorf("unpublish: %w", err))
	}
	return s.e.setDraftStep(ctx, current, t)
}

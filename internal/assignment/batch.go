package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Options configures an Orchestrator.
type Options struct {
	Policy          Policy
	DefaultWorkflow string
	Steps           StepFallback
}

// Orchestrator runs batches of assignment requests.
type Orchestrator struct {
	cms       CMS
	opts      Options
	resolver  *Resolver
	inspector *Inspector
	engine    *Engine
	mutator   *Mutator
	logger    *slog.Logger
}

// NewOrchestrator wires the resolver, inspector, transition engine and
// mutator around cms.
func NewOrchestrator(cms CMS, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Policy == "" {
		opts.Policy = PolicyFallback
	}
	inspector := NewInspector(cms, logger)
	return &Orchestrator{
		cms:       cms,
		opts:      opts,
		resolver:  NewResolver(cms, opts.Policy, logger),
		inspector: inspector,
		engine:    NewEngine(cms, inspector, logger),
		mutator:   NewMutator(cms, logger),
		logger:    logger,
	}
}

// Resolver returns the identifier resolver used by the orchestrator.
func (o *Orchestrator) Resolver() *Resolver {
	return o.resolver
}

// Setup builds the reference data shared by every request of a batch. The
// user directory is required. The workflow catalog degrades to the fallback
// steps when it cannot be fetched, but a malformed catalog aborts the batch.
// Languages are only loaded when a request names one by codename.
func (o *Orchestrator) Setup(ctx context.Context, requests []Request) (*Lookup, error) {
	directory, err := o.resolver.ResolveUsers(ctx, contributorEmails(requests))
	if err != nil {
		return nil, err
	}

	catalog, err := o.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	var languages *Languages
	if needsLanguages(requests) {
		languages, err = o.resolver.LoadLanguages(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrBatchSetup, ctxErr)
			}
			o.logger.Warn("languages unavailable, using identifiers as given", "error", err)
		}
	}

	return &Lookup{
		Directory: directory,
		Languages: languages,
		Workflows: catalog,
	}, nil
}

func (o *Orchestrator) loadCatalog(ctx context.Context) (*WorkflowCatalog, error) {
	workflows, err := o.cms.ListWorkflows(ctx)
	switch {
	case err == nil && len(workflows) > 0:
		catalog := NewWorkflowCatalog(workflows, o.opts.DefaultWorkflow, o.opts.Steps)
		def := catalog.Default()
		draft, _ := catalog.DraftTarget(def)
		o.logger.Debug("workflow catalog loaded",
			"workflows", len(workflows),
			"default", def.Codename,
			"draft_step", draft.Step.Key(),
		)
		return catalog, nil
	case err == nil:
		o.logger.Warn("no workflows defined, classifying against fallback steps")
		return UnavailableCatalog(o.opts.Steps), nil
	case errors.Is(err, kontent.ErrMalformedResponse):
		return nil, fmt.Errorf("%w: load workflows: %w", ErrBatchSetup, err)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("%w: %w", ErrBatchSetup, ctx.Err())
	default:
		o.logger.Warn("workflow catalog unavailable, classifying against fallback steps", "error", err)
		return UnavailableCatalog(o.opts.Steps), nil
	}
}

// Run processes requests sequentially in input order and returns one Result
// per request in the same order. observe, when non-nil, is called with each
// result as soon as it is final. Only setup failures are returned as an
// error; per-item failures become results. Cancellation is checked between
// items, and items not started are reported as canceled.
func (o *Orchestrator) Run(ctx context.Context, requests []Request, observe func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(requests))
	if len(requests) == 0 {
		return results, nil
	}

	lookup, err := o.Setup(ctx, requests)
	if err != nil {
		o.logger.Error("batch setup failed", "items", len(requests), "error", err)
		return nil, err
	}

	for _, req := range requests {
		var res Result
		if err := ctx.Err(); err != nil {
			res = o.failure(req, err, nil)
		} else {
			res = o.process(ctx, req, lookup)
		}

		results = append(results, res)
		if observe != nil {
			observe(res)
		}
	}

	s := Summarize(results)
	o.logger.Info("batch complete",
		"total", s.Total,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"manual", s.Manual,
	)
	return results, nil
}

func (o *Orchestrator) process(ctx context.Context, req Request, lookup *Lookup) Result {
	lang, ok := lookup.Languages.Target(req.Language)
	if !ok {
		o.logger.Warn("language codename not resolved, using identifier as given",
			"item", req.ContentItemID,
			"language", req.Language,
		)
	}

	ids, unresolved := lookup.Directory.IDs(req.Contributors)
	if len(unresolved) > 0 && lookup.Directory.Policy() == PolicyFail {
		err := fmt.Errorf("%w: %s", ErrContributorUnknown, strings.Join(unresolved, ", "))
		return o.failure(req, err, unresolved)
	}

	insp, err := o.inspector.Inspect(ctx, req.ContentItemID, lang, lookup.Workflows)
	if err != nil {
		return o.failure(req, err, unresolved)
	}

	variant := insp.Variant
	if insp.State != Draft {
		variant, err = o.engine.EnsureEditable(ctx, insp, Target{
			ItemID:   req.ContentItemID,
			Language: lang,
			Draft:    insp.Draft,
			HasDraft: insp.HasDraft,
		})
		if err != nil {
			return o.failure(req, err, unresolved)
		}
	}

	if _, err := o.mutator.ApplyContributors(ctx, variant, req.ContentItemID, lang, ids); err != nil {
		return o.failure(req, err, unresolved)
	}

	msg := "Contributors assigned successfully"
	if insp.State != Draft {
		msg = fmt.Sprintf("Contributors assigned successfully after moving the item from %s to draft", insp.State)
	}

	o.logger.Info("contributors assigned",
		"item", req.ContentItemID,
		"language", req.Language,
		"contributors", len(ids),
	)

	return Result{
		ContentItemID:       req.ContentItemID,
		ContentItemCodename: req.ContentItemCodename,
		Language:            req.Language,
		Outcome:             OutcomeSuccess,
		Success:             true,
		Message:             msg,
		Contributors:        ids,
	}
}

// failure converts a per-item error into a result. Workflow blocks and failed
// archived transitions need manual intervention; everything else is failed
// with a reason describing the cause.
func (o *Orchestrator) failure(req Request, err error, unresolved []string) Result {
	res := Result{
		ContentItemID:       req.ContentItemID,
		ContentItemCodename: req.ContentItemCodename,
		Language:            req.Language,
		Outcome:             OutcomeFailed,
		Error:               err.Error(),
	}

	var (
		transitionErr *TransitionError
		writeErr      *WriteError
	)

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		res.Reason = ReasonCanceled
		res.Message = "The batch was canceled before this item completed"
		res.Instructions = "Retry the item."
	case errors.As(err, &transitionErr) && transitionErr.State == Archived:
		res.Outcome = OutcomeManual
		res.RequiresManualIntervention = true
		res.Reason = ReasonArchivedTransitionFailed
		res.Message = "The item is archived and could not be moved back to draft"
		res.Instructions = "Restore the item from the archived step in the CMS, then retry the assignment."
	case errors.Is(err, ErrWorkflowBlocked):
		res.Outcome = OutcomeManual
		res.RequiresManualIntervention = true
		res.Reason = ReasonWorkflowBlocked
		res.Message = "The item's workflow state does not allow this change"
		res.Instructions = "Create a new version or unpublish the item in the CMS, then retry the assignment."
	case errors.Is(err, ErrContributorUnknown):
		res.Reason = ReasonUnresolvedContributor
		res.Message = "Contributors not found in the user directory: " + strings.Join(unresolved, ", ")
		res.Instructions = "Check the contributor emails or invite the users to the project."
	case len(unresolved) > 0 && errors.As(err, &writeErr):
		res.Reason = ReasonUnresolvedContributor
		res.Message = "The write was rejected; these contributors were sent as raw emails: " + strings.Join(unresolved, ", ")
		res.Instructions = "Check the contributor emails or invite the users to the project."
	case errors.Is(err, ErrVariantNotFound) || errors.Is(err, kontent.ErrNotFound):
		res.Reason = ReasonNotFound
		res.Message = "The content item or its language variant was not found"
	case errors.Is(err, kontent.ErrNoResponse):
		res.Reason = ReasonNetwork
		res.Message = "No response received from the CMS"
		res.Instructions = "Retry the item."
	case errors.Is(err, kontent.ErrMalformedResponse):
		res.Reason = ReasonMalformedResponse
		res.Message = "The CMS returned an unexpected response"
	case errors.As(err, &transitionErr):
		res.Reason = ReasonTransitionFailed
		res.Message = fmt.Sprintf("The item could not be moved from %s to draft", transitionErr.State)
	case errors.As(err, &writeErr) || kontent.IsRejection(err):
		res.Reason = ReasonWriteRejected
		res.Message = "The CMS rejected the contributor update"
	default:
		res.Reason = ReasonUnknown
		res.Message = "Assignment failed"
	}

	level := slog.LevelWarn
	if res.Reason == ReasonCanceled {
		level = slog.LevelInfo
	}
	o.logger.Log(context.Background(), level, "assignment failed",
		"item", req.ContentItemID,
		"language", req.Language,
		"outcome", string(res.Outcome),
		"reason", string(res.Reason),
		"error", err,
	)

	return res
}

func contributorEmails(requests []Request) []string {
	seen := make(map[string]bool)
	var emails []string
	for _, r := range requests {
		for _, e := range r.Contributors {
			key := normalizeEmail(e)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			emails = append(emails, strings.TrimSpace(e))
		}
	}
	return emails
}

func needsLanguages(requests []Request) bool {
	for _, r := range requests {
		if !kontent.ParseLanguageRef(r.Language).IsID() {
			return true
		}
	}
	return false
}

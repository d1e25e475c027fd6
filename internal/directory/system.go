package directory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/kontrib/internal/assignment"
	"github.com/JaimeStill/kontrib/internal/kontent"
	"github.com/JaimeStill/kontrib/pkg/pagination"
)

// System defines the public contract for directory operations.
type System interface {
	Handler() *Handler

	Users(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.User], error)
	Items(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.ContentItem], error)
	Types(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.ContentType], error)
	Languages(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.Language], error)
	Workflows(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Workflow], error)
	Dashboard(ctx context.Context, filter Filter) (*Dashboard, error)
}

type directory struct {
	src             Source
	defaultWorkflow string
	steps           assignment.StepFallback
	pagination      pagination.Config
	logger          *slog.Logger
}

// New creates a directory system over src.
func New(
	src Source,
	defaultWorkflow string,
	steps assignment.StepFallback,
	pagination pagination.Config,
	logger *slog.Logger,
) System {
	return &directory{
		src:             src,
		defaultWorkflow: defaultWorkflow,
		steps:           steps,
		pagination:      pagination,
		logger:          logger.With("system", "directory"),
	}
}

func (d *directory) Handler() *Handler {
	return NewHandler(d, d.logger, d.pagination)
}

func (d *directory) Users(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.User], error) {
	users, err := d.src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	result := pagination.Paginate(users, page, func(u kontent.User) []string {
		return []string{u.FullName(), u.Email}
	})
	return &result, nil
}

func (d *directory) Items(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.ContentItem], error) {
	items, err := d.src.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	result := pagination.Paginate(items, page, func(i kontent.ContentItem) []string {
		return []string{i.Name, i.Codename, i.Type.Key()}
	})
	return &result, nil
}

func (d *directory) Types(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.ContentType], error) {
	types, err := d.src.ListTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	result := pagination.Paginate(types, page, func(t kontent.ContentType) []string {
		return []string{t.Name, t.Codename}
	})
	return &result, nil
}

func (d *directory) Languages(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.Language], error) {
	langs, err := d.src.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	result := pagination.Paginate(langs, page, func(l kontent.Language) []string {
		return []string{l.Name, l.Codename}
	})
	return &result, nil
}

func (d *directory) Workflows(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Workflow], error) {
	list, err := d.src.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	catalog := assignment.NewWorkflowCatalog(list, d.defaultWorkflow, d.steps)
	def := catalog.Default()

	workflows := make([]Workflow, 0, len(list))
	for i := range list {
		wf := Workflow{
			Workflow:  list[i],
			IsDefault: def != nil && def.ID == list[i].ID && def.Codename == list[i].Codename,
		}
		if step, ok := list[i].DraftTarget(); ok {
			wf.DraftStep = &step
		}
		workflows = append(workflows, wf)
	}

	result := pagination.Paginate(workflows, page, func(w Workflow) []string {
		return []string{w.Name, w.Codename}
	})
	return &result, nil
}

// Dashboard loads users, items and workflows concurrently and aggregates the
// items each user contributes to.
func (d *directory) Dashboard(ctx context.Context, filter Filter) (*Dashboard, error) {
	var (
		users     []kontent.User
		items     []kontent.ContentItem
		workflows []kontent.Workflow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if users, err = d.src.ListUsers(gctx); err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if items, err = d.src.ListItems(gctx); err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if workflows, err = d.src.ListWorkflows(gctx); err != nil {
			d.logger.Warn("workflows unavailable, classifying dashboard by step codename", "error", err)
			workflows = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := assignment.NewWorkflowCatalog(workflows, d.defaultWorkflow, d.steps)
	return buildDashboard(users, items, catalog, filter), nil
}

func buildDashboard(users []kontent.User, items []kontent.ContentItem, catalog *assignment.WorkflowCatalog, filter Filter) *Dashboard {
	states := make([]assignment.State, len(items))
	totals := Totals{Contributors: len(users), Items: len(items)}
	for i, item := range items {
		states[i] = itemState(item, catalog)
		switch states[i] {
		case assignment.Published, assignment.Scheduled:
			totals.Published++
		case assignment.Archived:
			totals.Archived++
		default:
			totals.Draft++
		}
	}

	summaries := make([]ContributorSummary, 0, len(users))
	for _, u := range users {
		s := ContributorSummary{User: u, Items: []AssignedItem{}}
		for i, item := range items {
			if !contributesTo(item, u.ID) {
				continue
			}
			s.Items = append(s.Items, AssignedItem{
				ID:           item.ID,
				Name:         item.Name,
				Codename:     item.Codename,
				State:        states[i].String(),
				LastModified: item.LastModified,
			})
			switch states[i] {
			case assignment.Published, assignment.Scheduled:
				s.PublishedItems++
			case assignment.Archived:
				s.ArchivedItems++
			default:
				s.DraftItems++
			}
			s.LastActivity = later(s.LastActivity, item.LastModified)
		}
		s.TotalItems = len(s.Items)
		if s.TotalItems > 0 {
			totals.ActiveContributors++
		}

		switch {
		case filter == FilterActive && s.TotalItems == 0:
			continue
		case filter == FilterInactive && s.TotalItems > 0:
			continue
		}
		summaries = append(summaries, s)
	}

	slices.SortStableFunc(summaries, func(a, b ContributorSummary) int {
		return strings.Compare(strings.ToLower(a.User.FullName()), strings.ToLower(b.User.FullName()))
	})

	return &Dashboard{
		Filter:       filter,
		Totals:       totals,
		Contributors: summaries,
	}
}

// itemState classifies a listed item. Items whose step only carries a
// codename are classified by the conventional step codenames.
func itemState(item kontent.ContentItem, catalog *assignment.WorkflowCatalog) assignment.State {
	if item.WorkflowStep == nil {
		return assignment.Draft
	}
	v := &kontent.Variant{WorkflowStep: item.WorkflowStep}
	if state := assignment.Classify(v, catalog.For(v.Pointer())); state != assignment.Draft {
		return state
	}
	switch item.WorkflowStep.Codename {
	case "published":
		return assignment.Published
	case "scheduled":
		return assignment.Scheduled
	case "archived":
		return assignment.Archived
	default:
		return assignment.Draft
	}
}

func contributesTo(item kontent.ContentItem, userID string) bool {
	for _, c := range item.Contributors {
		if c.ID == userID {
			return true
		}
	}
	return false
}

func later(current, candidate string) string {
	if candidate == "" {
		return current
	}
	if current == "" {
		return candidate
	}
	a, errA := time.Parse(time.RFC3339, current)
	b, errB := time.Parse(time.RFC3339, candidate)
	if errA != nil || errB != nil {
		if candidate > current {
			return candidate
		}
		return current
	}
	if b.After(a) {
		return candidate
	}
	return current
}

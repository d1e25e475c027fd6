// Package directory serves the CMS reference data the assignment UI selects
// from (users, content items, types, languages, workflows) and the per
// contributor dashboard.
package directory

import (
	"context"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Source lists CMS reference data.
type Source interface {
	ListUsers(ctx context.Context) ([]kontent.User, error)
	ListItems(ctx context.Context) ([]kontent.ContentItem, error)
	ListTypes(ctx context.Context) ([]kontent.ContentType, error)
	ListLanguages(ctx context.Context) ([]kontent.Language, error)
	ListWorkflows(ctx context.Context) ([]kontent.Workflow, error)
}

// Workflow is a workflow definition annotated with its draft target.
type Workflow struct {
	kontent.Workflow
	DraftStep *kontent.WorkflowStep `json:"draft_step,omitempty"`
	IsDefault bool                  `json:"is_default"`
}

// Filter narrows the dashboard to contributors with or without items.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterActive   Filter = "active"
	FilterInactive Filter = "inactive"
)

// ParseFilter validates a dashboard filter. The empty string selects FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterInactive:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

// AssignedItem is a content item listed under a contributor.
type AssignedItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Codename     string `json:"codename"`
	State        string `json:"state"`
	LastModified string `json:"last_modified,omitempty"`
}

// ContributorSummary aggregates the items one user contributes to.
// Scheduled items count as published.
type ContributorSummary struct {
	User           kontent.User   `json:"user"`
	Items          []AssignedItem `json:"items"`
	TotalItems     int            `json:"total_items"`
	PublishedItems int            `json:"published_items"`
	DraftItems     int            `json:"draft_items"`
	ArchivedItems  int            `json:"archived_items"`
	LastActivity   string         `json:"last_activity,omitempty"`
}

// Totals summarizes the whole project.
type Totals struct {
	Contributors       int `json:"contributors"`
	ActiveContributors int `json:"active_contributors"`
	Items              int `json:"items"`
	Published          int `json:"published"`
	Draft              int `json:"draft"`
	Archived           int `json:"archived"`
}

// Dashboard is the contributor overview.
type Dashboard struct {
	Filter       Filter               `json:"filter"`
	Totals       Totals               `json:"totals"`
	Contributors []ContributorSummary `json:"contributors"`
}

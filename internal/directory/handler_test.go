package directory_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/kontrib/internal/directory"
	"github.com/JaimeStill/kontrib/internal/kontent"
	"github.com/JaimeStill/kontrib/pkg/pagination"
)

type mockSystem struct {
	usersFn     func(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.User], error)
	dashboardFn func(ctx context.Context, filter directory.Filter) (*directory.Dashboard, error)
}

func (m *mockSystem) Handler() *directory.Handler {
	return directory.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pageConfig)
}

func (m *mockSystem) Users(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.User], error) {
	return m.usersFn(ctx, page)
}

func (m *mockSystem) Items(context.Context, pagination.PageRequest) (*pagination.PageResult[kontent.ContentItem], error) {
	result := pagination.NewPageResult[kontent.ContentItem](nil, 0, 1, 10)
	return &result, nil
}

func (m *mockSystem) Types(context.Context, pagination.PageRequest) (*pagination.PageResult[kontent.ContentType], error) {
	result := pagination.NewPageResult[kontent.ContentType](nil, 0, 1, 10)
	return &result, nil
}

func (m *mockSystem) Languages(context.Context, pagination.PageRequest) (*pagination.PageResult[kontent.Language], error) {
	result := pagination.NewPageResult[kontent.Language](nil, 0, 1, 10)
	return &result, nil
}

func (m *mockSystem) Workflows(context.Context, pagination.PageRequest) (*pagination.PageResult[directory.Workflow], error) {
	result := pagination.NewPageResult[directory.Workflow](nil, 0, 1, 10)
	return &result, nil
}

func (m *mockSystem) Dashboard(ctx context.Context, filter directory.Filter) (*directory.Dashboard, error) {
	return m.dashboardFn(ctx, filter)
}

func setupMux(h *directory.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	for _, group := range h.Routes() {
		for _, route := range group.Routes {
			pattern := route.Method + " " + group.Prefix + route.Pattern
			mux.HandleFunc(pattern, route.Handler)
		}
	}
	return mux
}

func TestHandlerUsersParsesQuery(t *testing.T) {
	var got pagination.PageRequest
	sys := &mockSystem{
		usersFn: func(_ context.Context, page pagination.PageRequest) (*pagination.PageResult[kontent.User], error) {
			got = page
			result := pagination.NewPageResult([]kontent.User{{ID: "u-ana"}}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users?page=2&page_size=50&search=ana", nil)
	setupMux(sys.Handler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got.Page != 2 || got.PageSize != pageConfig.MaxPageSize {
		t.Errorf("page = %+v", got)
	}
	if got.Search == nil || *got.Search != "ana" {
		t.Errorf("search = %v", got.Search)
	}

	var result pagination.PageResult[kontent.User]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != "u-ana" {
		t.Errorf("data = %+v", result.Data)
	}
}

func TestHandlerUsersUpstreamFailure(t *testing.T) {
	sys := &mockSystem{
		usersFn: func(context.Context, pagination.PageRequest) (*pagination.PageResult[kontent.User], error) {
			return nil, kontent.ErrNoResponse
		},
	}

	rec := httptest.NewRecorder()
	setupMux(sys.Handler()).ServeHTTP(rec, httptest.NewRequest("GET", "/users", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestHandlerListingsRespond(t *testing.T) {
	mux := setupMux((&mockSystem{}).Handler())

	for _, path := range []string{"/items", "/types", "/languages", "/workflows"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestHandlerDashboard(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFilter directory.Filter
		wantStatus int
	}{
		{"default filter", "", directory.FilterAll, http.StatusOK},
		{"active", "?filter=active", directory.FilterActive, http.StatusOK},
		{"invalid", "?filter=asleep", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got directory.Filter
			sys := &mockSystem{
				dashboardFn: func(_ context.Context, filter directory.Filter) (*directory.Dashboard, error) {
					got = filter
					return &directory.Dashboard{Filter: filter, Contributors: []directory.ContributorSummary{}}, nil
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/contributors/dashboard"+tt.query, nil)
			setupMux(sys.Handler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got != tt.wantFilter {
				t.Errorf("filter = %q, want %q", got, tt.wantFilter)
			}
		})
	}
}

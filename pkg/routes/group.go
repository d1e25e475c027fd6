package routes

import "net/http"

// Group organizes routes under a common prefix. Children inherit the
// accumulated prefix of their parents.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	Walk(func(pattern string, route Route) {
		mux.HandleFunc(pattern, route.Handler)
	}, groups...)
}

// Patterns returns the ServeMux patterns the groups register, in
// declaration order.
func Patterns(groups ...Group) []string {
	var patterns []string
	Walk(func(pattern string, _ Route) {
		patterns = append(patterns, pattern)
	}, groups...)
	return patterns
}

// Walk calls fn with the full ServeMux pattern of every route in groups,
// depth first.
func Walk(fn func(pattern string, route Route), groups ...Group) {
	for _, group := range groups {
		walkGroup(fn, "", group)
	}
}

func walkGroup(fn func(string, Route), parentPrefix string, group Group) {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		fn(route.MuxPattern(fullPrefix), route)
	}
	for _, child := range group.Children {
		walkGroup(fn, fullPrefix, child)
	}
}

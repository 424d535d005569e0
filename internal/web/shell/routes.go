package shell

import "strings"

// Component is a view rendered for a route.
type Component string

const (
	Splash      Component = "Splash"
	Discover    Component = "Discover"
	SongPage    Component = "SongPage"
	Navigation  Component = "Navigation"
	UploadForm  Component = "UploadForm"
	UserProfile Component = "UserProfile"
)

// Route is one entry of the ordered route table. A route with Redirect set
// and an empty Pattern matches everything.
type Route struct {
	Name       string
	Pattern    string
	Exact      bool
	Components []Component
	Redirect   string
}

// Routes is matched in order; the first match wins.
var Routes = []Route{
	{Name: "splash", Pattern: "/", Exact: true, Components: []Component{Splash}},
	{Name: "discover", Pattern: "/discover", Components: []Component{Discover}},
	{Name: "song", Pattern: "/songs/:songId", Components: []Component{SongPage}},
	{Name: "upload", Pattern: "/upload", Components: []Component{Navigation, UploadForm}},
	{Name: "profile", Pattern: "/profile", Components: []Component{Navigation, UserProfile}},
	{Name: "fallback", Redirect: "/"},
}

// RouteMatch is a matched route and its path parameters.
type RouteMatch struct {
	Route  Route
	Params map[string]string
}

// IsRedirect reports whether the match is the catch-all.
func (m RouteMatch) IsRedirect() bool { return m.Route.Redirect != "" }

// Match finds the first route matching path. Non-exact routes match on
// whole-segment prefixes, so /discover/new renders Discover.
func Match(path string) RouteMatch {
	segs := splitPath(path)
	for _, rt := range Routes {
		if rt.Pattern == "" {
			return RouteMatch{Route: rt}
		}
		if params, ok := matchPattern(splitPath(rt.Pattern), segs, rt.Exact); ok {
			return RouteMatch{Route: rt, Params: params}
		}
	}
	return RouteMatch{Route: Route{Name: "fallback", Redirect: "/"}}
}

// Known reports whether path is served by a real view rather than the
// catch-all redirect.
func Known(path string) bool {
	return !Match(path).IsRedirect()
}

func matchPattern(pattern, segs []string, exact bool) (map[string]string, bool) {
	if len(segs) < len(pattern) || (exact && len(segs) != len(pattern)) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

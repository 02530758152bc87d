package application

import (
	"fmt"
	"regexp"
)

// WatchFilter decides whether a pipeline event is relevant: the project
// path must be allow-listed verbatim and the ref must match the branch
// pattern. This is the single chokepoint keeping noise events from
// creating records, API calls or notifications.
type WatchFilter struct {
	projects map[string]struct{}
	branches *regexp.Regexp
}

func NewWatchFilter(projects []string, branchPattern string) (*WatchFilter, error) {
	re, err := regexp.Compile("(?i)" + branchPattern)
	if err != nil {
		return nil, fmt.Errorf("branch pattern: %w", err)
	}

	set := make(map[string]struct{}, len(projects))
	for _, p := range projects {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}

	return &WatchFilter{projects: set, branches: re}, nil
}

// Accepts is read-only; callers log rejections.
func (f *WatchFilter) Accepts(project, ref string) bool {
	if _, ok := f.projects[project]; !ok {
		return false
	}
	return f.branches.MatchString(ref)
}

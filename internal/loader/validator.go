package loader

import (
	"fmt"
	"strings"

	"relay/internal/pipelines"
	"relay/internal/types"
)

// ValidationError collects multiple validation issues.
type ValidationError struct {
	Errors []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(ve.Errors, "\n  - "))
}

func (ve *ValidationError) Add(msg string) {
	ve.Errors = append(ve.Errors, msg)
}

func (ve *ValidationError) HasErrors() bool {
	return len(ve.Errors) > 0
}

// ValidateRoutes checks that every route is named once and refers to
// pipelines of the right kind.
func ValidateRoutes(rf *types.RouteFile) error {
	ve := &ValidationError{}

	commands := make(map[string]int)
	for i, route := range rf.Commands {
		if !strings.HasPrefix(route.Command, "/") || route.Name() == "" {
			ve.Add(fmt.Sprintf("command %d: %q must be a slash command such as /deploy", i+1, route.Command))
			continue
		}
		if prev, exists := commands[route.Name()]; exists {
			ve.Add(fmt.Sprintf("command %d: duplicate command %q (first at command %d)", i+1, route.Command, prev+1))
		}
		commands[route.Name()] = i

		if len(route.Pipelines) == 0 {
			ve.Add(fmt.Sprintf("command %q: at least one pipeline is required", route.Command))
		}
		seen := make(map[string]bool)
		for _, name := range route.Pipelines {
			if seen[name] {
				ve.Add(fmt.Sprintf("command %q: pipeline %q listed twice", route.Command, name))
			}
			seen[name] = true
			checkPipeline(ve, fmt.Sprintf("command %q", route.Command), name, pipelines.KindCommand)
		}
	}

	hooks := make(map[string]int)
	for i, route := range rf.Hooks {
		if route.Name == "" || strings.ContainsAny(route.Name, "/ ") {
			ve.Add(fmt.Sprintf("hook %d: invalid name %q", i+1, route.Name))
			continue
		}
		if prev, exists := hooks[route.Name]; exists {
			ve.Add(fmt.Sprintf("hook %d: duplicate hook %q (first at hook %d)", i+1, route.Name, prev+1))
		}
		hooks[route.Name] = i

		if route.Pipeline == "" {
			ve.Add(fmt.Sprintf("hook %q: 'pipeline' is required", route.Name))
			continue
		}
		checkPipeline(ve, fmt.Sprintf("hook %q", route.Name), route.Pipeline, pipelines.KindHook)
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

func checkPipeline(ve *ValidationError, where, name, kind string) {
	d, ok := pipelines.Lookup(name)
	switch {
	case !ok:
		ve.Add(fmt.Sprintf("%s: unknown pipeline %q", where, name))
	case d.Kind != kind:
		ve.Add(fmt.Sprintf("%s: pipeline %q is a %s, not a %s", where, name, d.Kind, kind))
	}
}

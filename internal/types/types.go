package types

import "strings"

// RouteFile is a parsed routes file: which pipelines answer which slash
// commands and hooks.
type RouteFile struct {
	Commands []CommandRoute `yaml:"commands" json:"commands"`
	Hooks    []HookRoute    `yaml:"hooks" json:"hooks"`
}

// CommandRoute maps a slash command to one or more pipelines. Several
// pipelines are run concurrently and their answers merged.
type CommandRoute struct {
	Command     string   `yaml:"command" json:"command"`
	Pipelines   []string `yaml:"pipelines" json:"pipelines"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// Name is the command without its leading slash.
func (r CommandRoute) Name() string {
	return strings.TrimPrefix(r.Command, "/")
}

// HookRoute exposes a hook pipeline at /hooks/{name}.
type HookRoute struct {
	Name        string `yaml:"name" json:"name"`
	Pipeline    string `yaml:"pipeline" json:"pipeline"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Merge appends other's routes to rf.
func (rf *RouteFile) Merge(other *RouteFile) {
	rf.Commands = append(rf.Commands, other.Commands...)
	rf.Hooks = append(rf.Hooks, other.Hooks...)
}

// Package subagent implements agent-profile discovery and the concrete
// tool.AgentExecutor that the Task tool delegates to: spawning a child
// agentloop.Loop, running it to completion (or in the background via
// internal/task), and reporting its result back as a tool result.
package subagent

import (
	"embed"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arjunsethi/agentcore/internal/log"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

// AgentType distinguishes a top-level agent profile from one only reachable
// via delegation.
type AgentType string

const (
	AgentTypeAgent    AgentType = "agent"
	AgentTypeSubagent AgentType = "subagent"
)

// Overrides is the overlay a profile applies on top of the parent loop's
// configuration when spawning a child loop.
type Overrides struct {
	PermissionMode string   `yaml:"permission_mode"`
	Tools          []string `yaml:"tools"`
	Model          string   `yaml:"model"`
	SystemPrompt   string   `yaml:"system_prompt"`
}

// Profile describes one named agent a Task call can spawn.
type Profile struct {
	Name        string    `yaml:"name"`
	DisplayName string    `yaml:"display_name"`
	Description string    `yaml:"description"`
	AgentType   AgentType `yaml:"agent_type"`
	Safety      string    `yaml:"safety"`
	Overrides   Overrides `yaml:"overrides"`

	// Source records where this profile came from, for the "custom
	// overrides builtin, logged" diagnostic.
	Source string `yaml:"-"`
}

// profileSet is the discovered, deduplicated collection of profiles:
// builtin, then user-level, then project-level, each later source
// overriding an earlier one with the same name.
type profileSet struct {
	byName map[string]Profile
	order  []string
}

// loadProfiles merges builtin, user, and project-level profiles in that
// priority order, logging when a custom profile shadows a builtin with the
// same name.
func loadProfiles(cwd string) *profileSet {
	ps := &profileSet{byName: map[string]Profile{}}

	ps.loadEmbedded()

	if home, err := os.UserHomeDir(); err == nil {
		ps.loadOSDir(filepath.Join(home, ".agentcore", "agents"), "user")
	}
	if cwd != "" {
		ps.loadOSDir(filepath.Join(cwd, ".agentcore", "agents"), "project")
	}

	sort.Strings(ps.order)
	return ps
}

func (ps *profileSet) loadEmbedded() {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := builtinFS.ReadFile(filepath.Join("profiles", e.Name()))
		if err != nil {
			continue
		}
		ps.add(data, "builtin")
	}
}

func (ps *profileSet) loadOSDir(dir, source string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Logger().Warn("subagent: failed to read profile",
				zap.String("path", filepath.Join(dir, e.Name())), zap.Error(err))
			continue
		}
		ps.add(data, source)
	}
}

func (ps *profileSet) add(data []byte, source string) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		log.Logger().Warn("subagent: failed to parse profile", zap.String("source", source), zap.Error(err))
		return
	}
	if p.Name == "" {
		return
	}
	if existing, ok := ps.byName[p.Name]; ok {
		log.Logger().Info("subagent: profile overrides an existing profile of the same name",
			zap.String("name", p.Name), zap.String("new_source", source), zap.String("old_source", existing.Source))
	} else {
		ps.order = append(ps.order, p.Name)
	}
	p.Source = source
	if p.AgentType == "" {
		p.AgentType = AgentTypeSubagent
	}
	ps.byName[p.Name] = p
}

// Get returns the named profile, if known.
func (ps *profileSet) Get(name string) (Profile, bool) {
	p, ok := ps.byName[name]
	return p, ok
}

// Order returns profile names in deterministic discovery order
// (alphabetical, since profiles carry no explicit priority field).
func (ps *profileSet) Order() []string {
	return append([]string(nil), ps.order...)
}

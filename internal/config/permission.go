package config

import (
	"net/url"
	"path/filepath"
	"strings"
)

// PermissionResult is the outcome of a permission-rule check.
type PermissionResult int

const (
	// PermissionAllow runs the call without asking.
	PermissionAllow PermissionResult = iota
	// PermissionDeny refuses the call without asking.
	PermissionDeny
	// PermissionAsk routes the call through the approval gate.
	PermissionAsk
)

func (p PermissionResult) String() string {
	switch p {
	case PermissionAllow:
		return "allow"
	case PermissionDeny:
		return "deny"
	case PermissionAsk:
		return "ask"
	default:
		return "unknown"
	}
}

// readOnlyTools never modify files or external state; absent any matching
// rule they are allowed by default.
var readOnlyTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"WebFetch":  true,
	"WebSearch": true,
}

// IsReadOnlyTool reports whether toolName is in the read-only default set.
func IsReadOnlyTool(toolName string) bool {
	return readOnlyTools[toolName]
}

// CheckPermission resolves the effective decision for one tool invocation.
// Resolution order:
//
//  1. Deny rules — not bypassable, not even by session grants.
//  2. Destructive bash commands — always routed to the gate.
//  3. Session grants ("allow all edits", per-session patterns).
//  4. Allow rules.
//  5. Ask rules.
//  6. Defaults: read-only tools allowed, everything else asks.
func (s *Settings) CheckPermission(toolName string, args map[string]any, session *SessionPermissions) PermissionResult {
	rule := BuildRule(toolName, args)

	for _, pattern := range s.Permissions.Deny {
		if MatchRule(rule, pattern) {
			return PermissionDeny
		}
	}

	if toolName == "Bash" {
		if cmd, ok := args["command"].(string); ok && IsDestructiveCommand(cmd) {
			return PermissionAsk
		}
	}

	if session != nil && s.sessionGrants(toolName, args, rule, session) {
		return PermissionAllow
	}

	for _, pattern := range s.Permissions.Allow {
		if MatchRule(rule, pattern) {
			return PermissionAllow
		}
	}
	for _, pattern := range s.Permissions.Ask {
		if MatchRule(rule, pattern) {
			return PermissionAsk
		}
	}

	if IsReadOnlyTool(toolName) {
		return PermissionAllow
	}
	return PermissionAsk
}

// sessionGrants checks the runtime, session-scoped grants: blanket per-tool
// allowances and ad-hoc patterns granted at earlier approval prompts. For a
// chained bash command every chained part must be checked individually, or
// "git status && curl ..." would ride in on a "git:*" grant.
func (s *Settings) sessionGrants(toolName string, args map[string]any, rule string, session *SessionPermissions) bool {
	if session.IsToolAllowed(toolName) {
		return true
	}
	for pattern := range session.AllowedPatterns {
		if MatchRule(rule, pattern) {
			return true
		}
	}
	if toolName != "Bash" {
		return false
	}
	cmd, ok := args["command"].(string)
	if !ok {
		return false
	}
	for _, part := range splitChainedCommand(cmd) {
		partRule := "Bash(" + commandPrefixForm(part) + ")"
		for pattern := range session.AllowedPatterns {
			if MatchRule(partRule, pattern) {
				return true
			}
		}
	}
	return false
}

// BuildRule renders one tool invocation as a "Tool(selector)" rule string,
// the same shape the settings files use for allow/deny/ask patterns. The
// selector is the argument that meaningfully scopes the call:
//
//	Bash(npm:install lodash)   command, in prefix form
//	Read(/path/to/file.txt)    file path (also Edit, Write)
//	Glob(**/*.go)              pattern (also Grep)
//	WebFetch(domain:host)      target host
//	Skill(git:commit)          skill name
func BuildRule(toolName string, args map[string]any) string {
	var selector string

	switch toolName {
	case "Bash":
		if cmd, ok := args["command"].(string); ok {
			selector = commandPrefixForm(cmd)
		}
	case "Read", "Edit", "Write":
		if fp, ok := args["file_path"].(string); ok {
			selector = fp
		}
	case "Glob", "Grep":
		if p, ok := args["pattern"].(string); ok {
			selector = p
		}
	case "WebFetch":
		if u, ok := args["url"].(string); ok {
			if parsed, err := url.Parse(u); err == nil {
				selector = "domain:" + parsed.Host
			} else {
				selector = u
			}
		}
	case "Skill":
		if sk, ok := args["skill"].(string); ok {
			selector = sk
		}
	default:
		if fp, ok := args["file_path"].(string); ok {
			selector = fp
		} else if p, ok := args["path"].(string); ok {
			selector = p
		} else if p, ok := args["pattern"].(string); ok {
			selector = p
		}
	}

	return toolName + "(" + selector + ")"
}

// commandPrefixForm rewrites a shell command as "word:rest" so patterns
// like "Bash(npm:*)" can match on the leading word. The leading word is
// stripped to its basename, so "/bin/rm -rf x" and "rm -rf x" normalize
// identically.
func commandPrefixForm(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}
	word, rest, found := strings.Cut(cmd, " ")
	word = filepath.Base(word)
	if !found {
		return word
	}
	return word + ":" + rest
}

// splitChainedCommand breaks "a && b; c" into its individual commands.
func splitChainedCommand(cmd string) []string {
	var out []string
	for _, chained := range strings.Split(cmd, "&&") {
		for _, part := range strings.Split(chained, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// MatchRule reports whether a "Tool(selector)" rule satisfies a
// "Tool(pattern)" pattern. Tool names compare exactly; selectors match with
// wildcard semantics ("*" any run of characters, "?" one character, "**"
// any run including path separators).
func MatchRule(rule, pattern string) bool {
	ruleTool, ruleSel := splitRule(rule)
	patTool, patSel := splitRule(pattern)
	if ruleTool != patTool {
		return false
	}
	return selectorMatch(ruleSel, patSel)
}

// splitRule splits "Bash(npm install)" into ("Bash", "npm install").
func splitRule(s string) (tool, selector string) {
	tool, selector, found := strings.Cut(s, "(")
	if !found {
		return s, ""
	}
	return tool, strings.TrimSuffix(selector, ")")
}

// selectorMatch matches a selector against a pattern, giving "**" its
// path-spanning meaning: "**/.env.*" matches any .env variant anywhere in
// the tree, "/home/**" matches everything under /home.
func selectorMatch(sel, pattern string) bool {
	if pattern == "" {
		return sel == ""
	}
	if pattern == "**" {
		return true
	}

	if prefix, suffix, ok := strings.Cut(pattern, "**"); ok && !strings.Contains(suffix, "**") {
		prefix = strings.TrimSuffix(prefix, "/")
		suffix = strings.TrimPrefix(suffix, "/")

		if prefix != "" && !strings.HasPrefix(sel, prefix) {
			return false
		}
		if suffix == "" {
			return true
		}
		if !strings.Contains(suffix, "*") {
			return strings.HasSuffix(sel, suffix)
		}
		// A wildcard suffix like "*.go" or ".env.*" names a file shape:
		// try the basename first, then whatever follows the prefix (for
		// shapes like "test/*.go").
		base := sel
		if i := strings.LastIndex(sel, "/"); i >= 0 {
			base = sel[i+1:]
		}
		if wildcardMatch(base, suffix) {
			return true
		}
		rest := sel
		if prefix != "" {
			rest = strings.TrimPrefix(strings.TrimPrefix(sel, prefix), "/")
		}
		return wildcardMatch(rest, suffix)
	}

	if strings.ContainsAny(pattern, "*?") {
		return wildcardMatch(sel, pattern)
	}
	return sel == pattern
}

// wildcardMatch matches s against a pattern of literals, "?" (exactly one
// character) and "*" (any run, including empty).
func wildcardMatch(s, pattern string) bool {
	for pattern != "" {
		switch pattern[0] {
		case '*':
			for pattern != "" && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if wildcardMatch(s[i:], pattern) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
		default:
			if s == "" || s[0] != pattern[0] {
				return false
			}
		}
		s, pattern = s[1:], pattern[1:]
	}
	return s == ""
}

// destructivePatterns are command shapes (in prefix form) that always
// require confirmation, even under a blanket session grant: each can cause
// irreversible data loss.
var destructivePatterns = []string{
	"rm:-rf",
	"rm:-fr",
	"rm:-r",
	"git:reset --hard",
	"git:clean -fd",
	"git:clean -f",
	"git:push --force",
	"git:push -f",
	"chmod:777",
	"chmod:-R 777",
	":(){ :|:& };:", // fork bomb
	"> /dev/",
	"dd:if=",
	"mkfs",
	"fdisk",
}

// IsDestructiveCommand reports whether cmd matches a known-destructive
// shape and must be confirmed regardless of session grants.
func IsDestructiveCommand(cmd string) bool {
	normalized := commandPrefixForm(cmd)
	for _, pattern := range destructivePatterns {
		if strings.Contains(normalized, pattern) {
			return true
		}
	}
	return false
}

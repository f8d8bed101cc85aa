package hooks

import "regexp"

// MatchesEvent reports whether a hook entry's matcher selects matchValue.
// An empty matcher (or "*") selects everything; otherwise the matcher is
// treated as a regex anchored at both ends, falling back to literal
// comparison if it doesn't compile.
func MatchesEvent(matcher, matchValue string) bool {
	if matcher == "" || matcher == "*" {
		return true
	}
	if re, err := regexp.Compile("^(" + matcher + ")$"); err == nil {
		return re.MatchString(matchValue)
	}
	return matcher == matchValue
}

// GetMatchValue picks the input field a matcher compares against for each
// event kind: the tool name for tool events, the source/reason for
// session events, and so on.
func GetMatchValue(event EventType, input HookInput) string {
	switch event {
	case PreToolUse, PostToolUse, PostToolUseFailure, PermissionRequest:
		return input.ToolName
	case SessionStart:
		return input.Source
	case SessionEnd:
		return input.Reason
	case Notification:
		return input.NotificationType
	case SubagentStart, SubagentStop:
		return input.AgentType
	case PreCompact:
		return input.Trigger
	default:
		return ""
	}
}

// EventSupportsMatcher reports whether the event kind carries a value a
// matcher can select on.
func EventSupportsMatcher(event EventType) bool {
	return event != UserPromptSubmit && event != Stop
}

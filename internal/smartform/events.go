package smartform

import "time"

// EventKind 协调器事件类型
type EventKind string

const (
	EventSuggestions       EventKind = "suggestions"
	EventAutocomplete      EventKind = "autocomplete"
	EventSuggestionsHidden EventKind = "suggestions_hidden"
	EventSuggestionApplied EventKind = "suggestion_applied"
	EventValidation        EventKind = "validation"
	EventAutoFill          EventKind = "autofill"
	EventState             EventKind = "state" // 输入框状态切换
)

// Event 推送给前端的协调器事件
type Event struct {
	SessionID   string            `json:"session_id"`
	Kind        EventKind         `json:"kind"`
	Field       string            `json:"field,omitempty"`
	State       InputState        `json:"state,omitempty"`
	Value       any               `json:"value,omitempty"`
	Suggestions []Suggestion      `json:"suggestions,omitempty"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
	At          time.Time         `json:"at"`
}

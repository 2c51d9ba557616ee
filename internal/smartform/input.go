package smartform

// InputState 单个字段输入框的状态
//
//	idle → focused（预加载建议）→ typing（防抖自动补全）→ blurred（触发校验，宽限期后隐藏建议）→ idle
type InputState string

const (
	StateIdle    InputState = "idle"
	StateFocused InputState = "focused"
	StateTyping  InputState = "typing"
	StateBlurred InputState = "blurred"
)

// InputSnapshot 输入框状态快照
type InputSnapshot struct {
	Field           string       `json:"field"`
	State           InputState   `json:"state"`
	Value           any          `json:"value"`
	ShowSuggestions bool         `json:"show_suggestions"`
	Suggestions     []Suggestion `json:"suggestions"`
}

// smartInput 字段绑定，由 Coordinator.mu 保护
type smartInput struct {
	field   string
	state   InputState
	value   any
	show    bool
	visible []Suggestion

	autocomplete *Debouncer[string]
	hide         *Debouncer[struct{}]
}

func (in *smartInput) snapshot() InputSnapshot {
	return InputSnapshot{
		Field:           in.field,
		State:           in.state,
		Value:           in.value,
		ShowSuggestions: in.show,
		Suggestions:     cloneSuggestions(in.visible),
	}
}

// setState 切换状态，返回是否发生变化
func (in *smartInput) setState(state InputState) bool {
	if in.state == state {
		return false
	}
	in.state = state
	return true
}

func (in *smartInput) findVisible(id string) (Suggestion, bool) {
	for _, s := range in.visible {
		if s.ID == id {
			return s, true
		}
	}
	return Suggestion{}, false
}

func (in *smartInput) dropVisible(id string) {
	for i, s := range in.visible {
		if s.ID == id {
			in.visible = append(in.visible[:i:i], in.visible[i+1:]...)
			return
		}
	}
}

func (in *smartInput) close() {
	in.autocomplete.Close()
	in.hide.Close()
}

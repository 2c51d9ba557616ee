package smartform

// AutoFill 用缓存建议填充空的必填字段，返回被应用的建议
// 已有值的字段一律不覆盖
func AutoFill(form Form, fields []string, best func(field string) (Suggestion, bool)) []Suggestion {
	applied := make([]Suggestion, 0)
	for _, field := range fields {
		if !form.IsEmpty(field) {
			continue
		}
		s, ok := best(field)
		if !ok || IsEmptyValue(s.Value) {
			continue
		}
		form.Set(field, s.Value)
		applied = append(applied, s)
	}
	return applied
}

package smartform

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Form 编辑中的表单数据，嵌套对象通过点号路径访问（basicInfo.title）
type Form map[string]any

// Get 按路径读取字段
func (f Form) Get(path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = map[string]any(f)
	for _, p := range parts {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set 按路径写入字段，缺失的中间层自动创建
func (f Form) Set(path string, value any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(f)
	for _, p := range parts[:len(parts)-1] {
		next, ok := asMap(cur[p])
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// IsEmpty 字段缺失或为空值
func (f Form) IsEmpty(path string) bool {
	v, ok := f.Get(path)
	return !ok || IsEmptyValue(v)
}

// Clone 深拷贝
func (f Form) Clone() Form {
	if f == nil {
		return Form{}
	}
	return Form(cloneMap(f))
}

// Merge 将 patch 深合并到当前表单
func (f Form) Merge(patch Form) {
	mergeInto(f, patch)
}

// JSON 序列化为 JSON
func (f Form) JSON() ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(f))
}

// ParseForm 从 JSON 解析表单，空输入返回空表单
func ParseForm(data []byte) (Form, error) {
	form := Form{}
	if len(data) == 0 {
		return form, nil
	}
	if err := json.Unmarshal(data, &form); err != nil {
		return nil, err
	}
	return form, nil
}

// IsEmptyValue 空值判断：nil、空白字符串、0、空集合
func IsEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return false
	case []any:
		return len(val) == 0
	case []string:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	case Form:
		return len(val) == 0
	}
	if n, ok := toFloat(v); ok {
		return n == 0
	}
	return false
}

// passesQuality 最低质量要求：字符串至少 3 个字符，数字大于 0
func passesQuality(v any) bool {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(strings.TrimSpace(s)) >= minQualityRunes
	}
	if n, ok := toFloat(v); ok {
		return n > 0
	}
	return !IsEmptyValue(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Form:
		return m, true
	}
	return nil, false
}

func cloneMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case Form:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i := range val {
			out[i] = cloneValue(val[i])
		}
		return out
	case []string:
		return append([]string(nil), val...)
	}
	return v
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := asMap(v); ok {
			if dstMap, ok := asMap(dst[k]); ok {
				mergeInto(dstMap, srcMap)
				continue
			}
			dst[k] = cloneMap(srcMap)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

package smartform

import (
	"strings"
	"unicode/utf8"
)

// MinAutocompleteRunes 触发自动补全的最少字符数
const MinAutocompleteRunes = 2

// ShouldAutocomplete 输入是否达到自动补全长度
func ShouldAutocomplete(input string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(input)) >= MinAutocompleteRunes
}

// MatchCached 从缓存建议中筛选包含输入的项（不区分大小写）
func MatchCached(input string, cached []Suggestion) []Suggestion {
	needle := strings.ToLower(strings.TrimSpace(input))
	out := make([]Suggestion, 0)
	for _, s := range cached {
		v := strings.ToLower(s.ValueString())
		if v != needle && strings.Contains(v, needle) {
			out = append(out, s)
		}
	}
	return out
}

// MergeAutocomplete 合并本地匹配与远端结果，按值去重，最多 limit 条
func MergeAutocomplete(local, remote []Suggestion, limit int) []Suggestion {
	seen := make(map[string]struct{}, len(local)+len(remote))
	out := make([]Suggestion, 0, len(local)+len(remote))

	add := func(list []Suggestion) {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s.ValueString()))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, s)
		}
	}
	add(local)
	add(remote)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

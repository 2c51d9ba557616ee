package smartform

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RequiredFields 必填字段（固定列表，不区分房源类型）
var RequiredFields = []string{
	"basicInfo.title",
	"basicInfo.description",
	"basicInfo.propertyType",
	"location.address",
	"location.city",
	"pricing.basePrice",
	"details.bedrooms",
}

const minQualityRunes = 3

// ==================== 完整度 ====================

// Completeness 已填必填字段占比（0-100）
func Completeness(form Form) int {
	filled := 0
	for _, field := range RequiredFields {
		if !form.IsEmpty(field) {
			filled++
		}
	}
	return percent(filled, len(RequiredFields))
}

// Quality 通过最低质量要求的必填字段占比（0-100）
func Quality(form Form) int {
	passing := 0
	for _, field := range RequiredFields {
		v, ok := form.Get(field)
		if ok && passesQuality(v) {
			passing++
		}
	}
	return percent(passing, len(RequiredFields))
}

// MissingFields 尚未填写的必填字段
func MissingFields(form Form) []string {
	missing := make([]string, 0)
	for _, field := range RequiredFields {
		if form.IsEmpty(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Analyze 根据当前表单、缓存建议与问题列表生成分析结果
func Analyze(form Form, suggestions []Suggestion, issues []ValidationIssue) FormFieldAnalysis {
	title, _ := form.Get("basicInfo.title")
	desc, _ := form.Get("basicInfo.description")
	titleStr, _ := title.(string)
	descStr, _ := desc.(string)

	if suggestions == nil {
		suggestions = []Suggestion{}
	}
	if issues == nil {
		issues = []ValidationIssue{}
	}

	return FormFieldAnalysis{
		Completeness:     Completeness(form),
		Quality:          Quality(form),
		TitleScore:       ScoreTitle(titleStr),
		DescriptionScore: ScoreDescription(descStr),
		MissingFields:    MissingFields(form),
		Suggestions:      suggestions,
		Issues:           issues,
	}
}

// ==================== 文案质量 ====================

// ScoreTitle 标题质量分（0-100）
//   - 长度 20-80 字符：40
//   - 至少 4 个词：20
//   - 非全大写：20
//   - 无连续感叹号/问号：20
func ScoreTitle(title string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0
	}

	score := 0
	n := utf8.RuneCountInString(title)
	switch {
	case n >= 20 && n <= 80:
		score += 40
	case n >= 10:
		score += 20
	}
	if len(strings.Fields(title)) >= 4 {
		score += 20
	}
	if !isShouting(title) {
		score += 20
	}
	if !strings.Contains(title, "!!") && !strings.Contains(title, "??") {
		score += 20
	}
	return clamp(score)
}

var amenityKeywords = []string{
	"wifi", "kitchen", "parking", "pool", "balcony", "washer", "air conditioning",
	"heating", "garden", "view", "gym", "workspace", "pet",
}

// ScoreDescription 描述质量分（0-100）
//   - 长度 ≥200 字符：40（≥100：20）
//   - 多段落：20
//   - 提到设施关键词：20
//   - 至少 3 句：20
func ScoreDescription(desc string) int {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return 0
	}

	score := 0
	n := utf8.RuneCountInString(desc)
	switch {
	case n >= 200:
		score += 40
	case n >= 100:
		score += 20
	}
	if strings.Contains(desc, "\n\n") || strings.Count(desc, "\n") >= 2 {
		score += 20
	}
	lower := strings.ToLower(desc)
	for _, kw := range amenityKeywords {
		if strings.Contains(lower, kw) {
			score += 20
			break
		}
	}
	sentences := strings.FieldsFunc(desc, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '。'
	})
	if countNonBlank(sentences) >= 3 {
		score += 20
	}
	return clamp(score)
}

func isShouting(s string) bool {
	letters, upper := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	return letters >= 5 && upper == letters
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return clamp(int(math.Round(float64(n) / float64(total) * 100)))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

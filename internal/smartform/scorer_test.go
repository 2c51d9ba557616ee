package smartform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name string
		form Form
		want int
	}{
		{"空表单", Form{}, 0},
		{"全部必填", fullForm(), 100},
		{"仅标题", Form{"basicInfo": map[string]any{"title": "Loft"}}, 14},
		{"空白字符串不计入", Form{"basicInfo": map[string]any{"title": "   "}}, 0},
		{"价格为 0 视为未填", Form{"pricing": map[string]any{"basePrice": 0.0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Completeness(tt.form))
		})
	}
}

func TestQuality(t *testing.T) {
	form := fullForm()
	assert.Equal(t, 100, Quality(form))

	form.Set("basicInfo.title", "ab")
	assert.Equal(t, 100, Completeness(form), "短标题仍算已填")
	assert.Equal(t, 86, Quality(form))

	form.Set("pricing.basePrice", -5.0)
	assert.Equal(t, 71, Quality(form))
}

func TestMissingFields(t *testing.T) {
	assert.Equal(t, RequiredFields, MissingFields(Form{}))
	assert.Empty(t, MissingFields(fullForm()))

	form := fullForm()
	form.Set("location.city", "")
	assert.Equal(t, []string{"location.city"}, MissingFields(form))
}

func TestScoreTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  int
	}{
		{"空标题", "", 0},
		{"规范标题", "Sunny loft near the river", 100},
		{"过短且重复标点", "Loft!!", 20},
		{"全大写", "BIG SUNNY LOFT NOW!!", 60},
		{"中等长度", "Quiet flat", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreTitle(tt.title))
		})
	}
}

func TestScoreDescription(t *testing.T) {
	long := strings.Repeat("Bright rooms with tall windows and a calm street outside. ", 3) +
		"\n\nThe kitchen is fully equipped and the wifi is fast. Parking is available nearby."

	assert.Equal(t, 0, ScoreDescription(""))
	assert.Equal(t, 0, ScoreDescription("Nice place"))
	assert.Equal(t, 100, ScoreDescription(long))
	assert.Equal(t, 20, ScoreDescription("Has wifi"))
}

func TestAnalyze(t *testing.T) {
	a := Analyze(Form{}, nil, nil)
	assert.Equal(t, 0, a.Completeness)
	assert.Equal(t, 0, a.Quality)
	assert.NotNil(t, a.Suggestions)
	assert.NotNil(t, a.Issues)
	assert.Len(t, a.MissingFields, len(RequiredFields))

	issues := []ValidationIssue{{Field: "pricing.basePrice", Message: "低于市场价", Severity: SeverityWarning}}
	a = Analyze(fullForm(), nil, issues)
	assert.Equal(t, 100, a.Completeness)
	assert.Equal(t, 100, a.TitleScore)
	assert.Equal(t, issues, a.Issues)
	assert.False(t, HasErrors(a.Issues))
}

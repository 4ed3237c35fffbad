package extraction

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummary(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{
			name:  "valid object",
			raw:   `{"main_topics":["Spaced repetition"],"key_insights":["Intervals grow"],"questions":[],"takeaways":["Review daily"]}`,
			valid: true,
		},
		{
			name:  "fenced json",
			raw:   "```json\n{\"main_topics\":[\"Recall\"],\"key_insights\":[],\"questions\":[],\"takeaways\":[]}\n```",
			valid: true,
		},
		{
			name:  "missing optional lists",
			raw:   `{"main_topics":["Recall"]}`,
			valid: true,
		},
		{name: "no main topics", raw: `{"main_topics":[],"key_insights":["x"]}`},
		{name: "blank main topics", raw: `{"main_topics":["  "]}`},
		{name: "wrong type", raw: `{"main_topics":"Recall"}`},
		{name: "unknown field", raw: `{"main_topics":["Recall"],"mood":"happy"}`},
		{name: "not json", raw: `Here is your summary: recall is good`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := ParseSummary(tt.raw)
			assert.Equal(t, tt.valid, parsed.Valid(), "malformed: %v", parsed.Malformed)
			if !tt.valid {
				assert.ErrorIs(t, parsed.Malformed, ErrMalformedResponse)
			}
		})
	}
}

func TestParseSummary_TruncatesLists(t *testing.T) {
	parsed := ParseSummary(`{"main_topics":["a","b","c","d","e","f","g"],"key_insights":[],"questions":["q1","q2","q3","q4","q5","q6"],"takeaways":[]}`)

	require.True(t, parsed.Valid())
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, parsed.Value.MainTopics)
	assert.Len(t, parsed.Value.Questions, 6)
}

func TestParseConcepts(t *testing.T) {
	parsed := ParseConcepts(`{"concepts":[" Spaced repetition intervals expand over time ","","Active recall beats passive rereading for retention",` +
		`"Sleep consolidates newly learned material into memory","Interleaving topics improves long term transfer",` +
		`"Testing effect strengthens memory more than review","Sixth concept is dropped by the cap here"]}`)
	require.True(t, parsed.Valid())
	assert.Equal(t, []string{
		"Spaced repetition intervals expand over time",
		"Active recall beats passive rereading for retention",
		"Sleep consolidates newly learned material into memory",
		"Interleaving topics improves long term transfer",
		"Testing effect strengthens memory more than review",
	}, parsed.Value)

	assert.False(t, ParseConcepts(`{"concepts":[]}`).Valid())
	assert.False(t, ParseConcepts(`["a","b"]`).Valid())
}

func TestParseConcepts_WordCountBounds(t *testing.T) {
	tests := []struct {
		name    string
		concept string
		valid   bool
	}{
		{"five words", "Recall strengthens long term memory", true},
		{"fifteen words", strings.TrimSpace(strings.Repeat("word ", 15)), true},
		{"single word", "Recursion", false},
		{"four words", "Recall strengthens long memory", false},
		{"sixteen words", strings.TrimSpace(strings.Repeat("word ", 16)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fmt.Sprintf(`{"concepts":[%q]}`, tt.concept)
			parsed := ParseConcepts(raw)
			assert.Equal(t, tt.valid, parsed.Valid(), "%v", parsed.Malformed)
			if !tt.valid {
				assert.ErrorIs(t, parsed.Malformed, ErrMalformedResponse)
			}
		})
	}
}

func TestParseQuiz(t *testing.T) {
	valid := `{"questions":[{"question":"What grows?","options":{"A":"Intervals","B":"Costs","C":"Noise","D":"Nothing"},"correct_answer":"a","explanation":"Intervals expand."}]}`

	parsed := ParseQuiz(valid)
	require.True(t, parsed.Valid(), "%v", parsed.Malformed)
	require.Len(t, parsed.Value, 1)
	assert.Equal(t, "A", parsed.Value[0].CorrectAnswer)
	assert.Equal(t, "Intervals", parsed.Value[0].Options["A"])

	tests := map[string]string{
		"three options":  `{"questions":[{"question":"Q","options":{"A":"1","B":"2","C":"3"},"correct_answer":"A","explanation":"E"}]}`,
		"bad label":      `{"questions":[{"question":"Q","options":{"A":"1","B":"2","C":"3","E":"4"},"correct_answer":"A","explanation":"E"}]}`,
		"answer not A-D": `{"questions":[{"question":"Q","options":{"A":"1","B":"2","C":"3","D":"4"},"correct_answer":"E","explanation":"E"}]}`,
		"blank option":   `{"questions":[{"question":"Q","options":{"A":"1","B":"","C":"3","D":"4"},"correct_answer":"A","explanation":"E"}]}`,
		"no questions":   `{"questions":[]}`,
		"missing stem":   `{"questions":[{"options":{"A":"1","B":"2","C":"3","D":"4"},"correct_answer":"A","explanation":"E"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			assert.False(t, ParseQuiz(raw).Valid())
		})
	}
}

func TestSummaryJSON(t *testing.T) {
	s := Summary{MainTopics: []string{"x"}, KeyInsights: []string{}, Questions: []string{}, Takeaways: []string{}}
	assert.JSONEq(t, `{"main_topics":["x"],"key_insights":[],"questions":[],"takeaways":[]}`, s.JSON())
}

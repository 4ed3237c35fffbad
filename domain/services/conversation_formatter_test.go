package services

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mentraflow-backend/domain/core/entities"
)

func makeMessages(n int) []entities.Message {
	msgs := make([]entities.Message, n)
	for i := range msgs {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs[i] = entities.Message{Role: role, Content: fmt.Sprintf("message %d", i+1)}
	}
	return msgs
}

func TestConversationFormatter_Format(t *testing.T) {
	formatter := NewConversationFormatter(DefaultFormatPolicy())

	tests := []struct {
		name      string
		count     int
		wantLines int
		marker    string
		firstKept []int
		lastKept  []int
	}{
		{
			name:      "short conversation is rendered whole",
			count:     40,
			wantLines: 40,
			firstKept: []int{1, 40},
		},
		{
			name:      "exactly fifty messages has no marker",
			count:     50,
			wantLines: 50,
			firstKept: []int{1, 50},
		},
		{
			name:      "medium conversation keeps first 20 and last 30",
			count:     80,
			wantLines: 51,
			marker:    "[... 30 messages omitted ...]",
			firstKept: []int{1, 20},
			lastKept:  []int{51, 80},
		},
		{
			name:      "long conversation keeps first 15 and last 25",
			count:     120,
			wantLines: 41,
			marker:    "[... conversation has 120 messages, showing 40 ...]",
			firstKept: []int{1, 15},
			lastKept:  []int{96, 120},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			out := formatter.Format(makeMessages(tt.count))
			lines := strings.Split(out, "\n")

			// Assert
			require.Len(t, lines, tt.wantLines)
			assert.Equal(t, fmt.Sprintf("USER: message %d", tt.firstKept[0]), lines[0])
			head := tt.firstKept[1] - tt.firstKept[0] + 1
			assert.True(t, strings.HasSuffix(lines[head-1], fmt.Sprintf("message %d", tt.firstKept[1])))

			if tt.marker == "" {
				assert.NotContains(t, out, "[...")
				return
			}
			assert.Equal(t, tt.marker, lines[head])
			assert.True(t, strings.HasSuffix(lines[head+1], fmt.Sprintf("message %d", tt.lastKept[0])))
			assert.True(t, strings.HasSuffix(lines[len(lines)-1], fmt.Sprintf("message %d", tt.lastKept[1])))
			assert.Equal(t, 1, strings.Count(out, "[..."))
		})
	}
}

func TestConversationFormatter_RoleTags(t *testing.T) {
	formatter := NewConversationFormatter(DefaultFormatPolicy())

	out := formatter.Format([]entities.Message{
		{Role: "user", Content: "What is spaced repetition?"},
		{Role: "Assistant", Content: "A review technique."},
	})

	assert.Equal(t, "USER: What is spaced repetition?\nASSISTANT: A review technique.", out)
}

func TestConversationFormatter_Bound(t *testing.T) {
	formatter := NewConversationFormatter(DefaultFormatPolicy())

	t.Run("text within budget is unchanged", func(t *testing.T) {
		text := strings.Repeat("a", 24000)
		assert.Equal(t, text, formatter.Bound(text))
	})

	t.Run("text over budget keeps the final 5000 characters", func(t *testing.T) {
		text := strings.Repeat("a", 20000) + strings.Repeat("b", 5000)
		bounded := formatter.Bound(text)
		assert.Len(t, bounded, 5000)
		assert.Equal(t, strings.Repeat("b", 5000), bounded)
	})

	t.Run("multibyte text is budgeted by characters", func(t *testing.T) {
		text := strings.Repeat("é", 24000)
		assert.Equal(t, text, formatter.Bound(text))
	})

	t.Run("multibyte text over budget keeps the final 5000 characters", func(t *testing.T) {
		text := strings.Repeat("a", 20000) + strings.Repeat("日", 5000)
		bounded := formatter.Bound(text)
		assert.Equal(t, 5000, utf8.RuneCountInString(bounded))
		assert.Equal(t, strings.Repeat("日", 5000), bounded)
	})
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 2, EstimateTokens("ééééàààà"))
}

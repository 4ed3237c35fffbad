package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mentraflow-backend/domain/core/entities"
)

// FormatPolicy bounds how much of a conversation reaches the language model.
// The zero value is not useful; use DefaultFormatPolicy.
type FormatPolicy struct {
	// Conversations up to FullLimit messages are rendered whole.
	FullLimit int
	// Up to MediumLimit messages, MediumHead + MediumTail are kept.
	MediumLimit int
	MediumHead  int
	MediumTail  int
	// Beyond MediumLimit, LongHead + LongTail are kept.
	LongHead int
	LongTail int
	// Text estimated above MaxTokens (chars/4) is cut to its last TailChars.
	MaxTokens int
	TailChars int
}

// DefaultFormatPolicy returns the production limits.
func DefaultFormatPolicy() FormatPolicy {
	return FormatPolicy{
		FullLimit:   50,
		MediumLimit: 100,
		MediumHead:  20,
		MediumTail:  30,
		LongHead:    15,
		LongTail:    25,
		MaxTokens:   6000,
		TailChars:   5000,
	}
}

// ConversationFormatter renders a conversation as a single bounded text block.
type ConversationFormatter struct {
	policy FormatPolicy
}

func NewConversationFormatter(policy FormatPolicy) *ConversationFormatter {
	return &ConversationFormatter{policy: policy}
}

// Format renders one line per kept message as "ROLE: content", keeping the
// opening and the most recent exchanges of long conversations and marking the
// gap between them.
func (f *ConversationFormatter) Format(messages []entities.Message) string {
	n := len(messages)
	p := f.policy

	var lines []string
	switch {
	case n <= p.FullLimit:
		lines = renderMessages(messages)
	case n <= p.MediumLimit:
		lines = append(lines, renderMessages(messages[:p.MediumHead])...)
		lines = append(lines, fmt.Sprintf("[... %d messages omitted ...]", n-p.MediumHead-p.MediumTail))
		lines = append(lines, renderMessages(messages[n-p.MediumTail:])...)
	default:
		lines = append(lines, renderMessages(messages[:p.LongHead])...)
		lines = append(lines, fmt.Sprintf("[... conversation has %d messages, showing %d ...]", n, p.LongHead+p.LongTail))
		lines = append(lines, renderMessages(messages[n-p.LongTail:])...)
	}
	return strings.Join(lines, "\n")
}

// Bound cuts text whose estimated token count exceeds the budget down to its
// final TailChars characters. Message boundaries are not respected.
func (f *ConversationFormatter) Bound(text string) string {
	if EstimateTokens(text) <= f.policy.MaxTokens {
		return text
	}
	runes := []rune(text)
	if len(runes) <= f.policy.TailChars {
		return text
	}
	return string(runes[len(runes)-f.policy.TailChars:])
}

// FormatBounded is Format followed by Bound.
func (f *ConversationFormatter) FormatBounded(messages []entities.Message) string {
	return f.Bound(f.Format(messages))
}

// EstimateTokens approximates the token count as characters / 4. Characters
// are runes, not bytes.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

func renderMessages(messages []entities.Message) []string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.RoleTag(), m.Content))
	}
	return lines
}

package extraction

import (
	"fmt"
	"strings"
)

func summaryPrompt(conversation string) string {
	return fmt.Sprintf(`Analyze this AI conversation and summarize what the user was learning.

Conversation:
%s

Return only a JSON object with this structure:
{
  "main_topics": ["2-5 main topics discussed"],
  "key_insights": ["2-5 important insights or learnings"],
  "questions": ["questions the user asked that remain worth revisiting"],
  "takeaways": ["2-5 actionable takeaways"]
}`, conversation)
}

func conceptsPrompt(summary Summary, subject string) string {
	return fmt.Sprintf(`Extract 3-5 key concepts from this learning conversation about %q.

Main topics: %s
Key insights: %s
Takeaways: %s

Each concept must be a standalone learning of 5-15 words that could serve as
the stem of a quiz question.

Return only a JSON object: {"concepts": ["concept one", "concept two"]}`,
		subject,
		strings.Join(summary.MainTopics, "; "),
		strings.Join(summary.KeyInsights, "; "),
		strings.Join(summary.Takeaways, "; "))
}

func quizPrompt(concepts []string) string {
	var b strings.Builder
	for i, c := range concepts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return fmt.Sprintf(`Create 3-5 multiple choice questions testing these concepts, in the
same order as the concepts:

%s
Each question has exactly four options labeled A, B, C and D, one correct
label and a one sentence explanation.

Return only a JSON object:
{"questions": [{"question": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "correct_answer": "A", "explanation": "..."}]}`, b.String())
}

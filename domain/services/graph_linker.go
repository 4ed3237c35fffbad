package services

import (
	"strings"
	"unicode/utf8"

	"mentraflow-backend/domain/core/entities"
)

// minKeywordLength is exclusive: only words longer than this count.
const minKeywordLength = 4

// TitleKeywords returns the set of lowercase words in title longer than four
// characters, ignoring surrounding punctuation.
func TitleKeywords(title string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if utf8.RuneCountInString(word) > minKeywordLength {
			keywords[word] = struct{}{}
		}
	}
	return keywords
}

// SharesKeyword reports whether the two keyword sets intersect.
func SharesKeyword(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// GraphLinker picks which existing nodes a new node should connect to.
type GraphLinker struct {
	maxConnections int
}

func NewGraphLinker(maxConnections int) *GraphLinker {
	if maxConnections <= 0 {
		maxConnections = entities.MaxAutoConnections
	}
	return &GraphLinker{maxConnections: maxConnections}
}

// SelectConnections walks candidates in order and returns those sharing a
// title keyword with node, stopping once node would hold maxConnections
// links. Connections node already holds count toward the cap. Candidates are
// not ranked; the first matches win.
func (l *GraphLinker) SelectConnections(node *entities.KnowledgeNode, candidates []*entities.KnowledgeNode) []*entities.KnowledgeNode {
	keywords := TitleKeywords(node.Title)
	if len(keywords) == 0 {
		return nil
	}

	room := l.maxConnections - len(node.Connections)
	var selected []*entities.KnowledgeNode
	for _, candidate := range candidates {
		if room <= 0 {
			break
		}
		if candidate.ID == node.ID || node.HasConnection(candidate.ID) {
			continue
		}
		if SharesKeyword(keywords, TitleKeywords(candidate.Title)) {
			selected = append(selected, candidate)
			room--
		}
	}
	return selected
}

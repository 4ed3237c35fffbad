// Package chatgpt converts a ChatGPT data export (conversations.json) into
// submit-export conversations.
package chatgpt

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"mentraflow-backend/domain/core/entities"
)

// Platform is the platform tag given to imported conversations.
const Platform = "chatgpt"

type exportConversation struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Title          string              `json:"title"`
	CreateTime     *float64            `json:"create_time"`
	CurrentNode    string              `json:"current_node"`
	Mapping        map[string]treeNode `json:"mapping"`
}

type treeNode struct {
	ID      string       `json:"id"`
	Parent  string       `json:"parent"`
	Message *treeMessage `json:"message"`
}

type treeMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime *float64 `json:"create_time"`
	Content    struct {
		ContentType string            `json:"content_type"`
		Parts       []json.RawMessage `json:"parts"`
	} `json:"content"`
}

// LoadFile parses the export at path.
func LoadFile(path string) ([]entities.Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an export and returns one conversation per exported thread
// that has at least one user or assistant text message. Each thread is
// flattened along the branch ending at its current node.
func Parse(r io.Reader) ([]entities.Conversation, error) {
	var raw []exportConversation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode chatgpt export: %w", err)
	}

	conversations := make([]entities.Conversation, 0, len(raw))
	for _, rc := range raw {
		conv, ok := convert(rc)
		if ok {
			conversations = append(conversations, conv)
		}
	}
	return conversations, nil
}

func convert(rc exportConversation) (entities.Conversation, bool) {
	var messages []entities.Message
	for _, node := range branch(rc) {
		if node.Message == nil {
			continue
		}
		role := strings.ToLower(node.Message.Author.Role)
		if role != "user" && role != "assistant" {
			continue
		}
		text := messageText(node.Message)
		if text == "" {
			continue
		}
		msg := entities.Message{Role: role, Content: text}
		if ts, ok := unixTime(node.Message.CreateTime); ok {
			msg.Timestamp = ts.Format(time.RFC3339)
		}
		messages = append(messages, msg)
	}
	if len(messages) == 0 {
		return entities.Conversation{}, false
	}

	id := strings.TrimSpace(rc.ConversationID)
	if id == "" {
		id = strings.TrimSpace(rc.ID)
	}
	if id == "" {
		ts, _ := unixTime(rc.CreateTime)
		id = "chatgpt-" + ts.Format("20060102150405")
	}

	return entities.Conversation{
		ID:       id,
		Title:    strings.TrimSpace(rc.Title),
		Platform: Platform,
		Messages: messages,
	}, true
}

// branch walks parent links from the current node back to the root, then
// reverses the path. Exports without a usable current node fall back to
// ordering every node by creation time.
func branch(rc exportConversation) []treeNode {
	var path []treeNode
	seen := make(map[string]bool)
	for id := rc.CurrentNode; id != "" && !seen[id]; {
		node, ok := rc.Mapping[id]
		if !ok {
			break
		}
		seen[id] = true
		path = append(path, node)
		id = node.Parent
	}
	if len(path) == 0 {
		return byCreateTime(rc.Mapping)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func byCreateTime(mapping map[string]treeNode) []treeNode {
	nodes := make([]treeNode, 0, len(mapping))
	for id, node := range mapping {
		if node.ID == "" {
			node.ID = id
		}
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		ti, okI := unixTime(createTime(nodes[i].Message))
		tj, okJ := unixTime(createTime(nodes[j].Message))
		switch {
		case okI && okJ && !ti.Equal(tj):
			return ti.Before(tj)
		case okI != okJ:
			return okI
		default:
			return nodes[i].ID < nodes[j].ID
		}
	})
	return nodes
}

func createTime(m *treeMessage) *float64 {
	if m == nil {
		return nil
	}
	return m.CreateTime
}

// messageText joins the string parts of text content. Non-string parts such
// as image pointers are skipped.
func messageText(m *treeMessage) string {
	switch m.Content.ContentType {
	case "text", "multimodal_text":
	default:
		return ""
	}
	var parts []string
	for _, raw := range m.Content.Parts {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func unixTime(v *float64) (time.Time, bool) {
	if v == nil || *v <= 0 {
		return time.Time{}, false
	}
	sec, frac := math.Modf(*v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}

// Batches splits conversations into chunks of at most size.
func Batches(conversations []entities.Conversation, size int) [][]entities.Conversation {
	if size <= 0 {
		size = len(conversations)
	}
	var out [][]entities.Conversation
	for start := 0; start < len(conversations); start += size {
		end := start + size
		if end > len(conversations) {
			end = len(conversations)
		}
		out = append(out, conversations[start:end])
	}
	return out
}

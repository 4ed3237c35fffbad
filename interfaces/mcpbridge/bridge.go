// Package mcpbridge exposes the ingestion API as Model Context Protocol tools so
// chat clients can push conversations directly.
package mcpbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"mentraflow-backend/application/services"
	"mentraflow-backend/domain/core/entities"
)

const (
	ToolExport       = "export_to_mentraflow"
	ToolImportStatus = "get_import_status"

	defaultPlatform = "claude"
)

// API is the part of the HTTP client the tools use.
type API interface {
	SubmitExport(ctx context.Context, userID string, conversations []entities.Conversation) (*services.SubmitExportResult, error)
	ImportStatus(ctx context.Context, importID string) (*services.ImportStatus, error)
}

// Bridge forwards tool calls to the ingestion API.
type Bridge struct {
	api         API
	defaultUser string
	logger      *zap.Logger
}

// NewBridge creates a bridge. defaultUser is used when a call omits user_id.
func NewBridge(api API, defaultUser string, logger *zap.Logger) *Bridge {
	return &Bridge{api: api, defaultUser: defaultUser, logger: logger}
}

// NewServer builds an MCP server with the bridge's tools registered.
func (b *Bridge) NewServer(name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))

	s.AddTool(mcp.NewTool(ToolExport,
		mcp.WithDescription("Export conversations to MentraFlow for knowledge retention and quiz generation"),
		mcp.WithString("user_id", mcp.Description("MentraFlow user ID")),
		mcp.WithArray("conversations",
			mcp.Required(),
			mcp.Description("Conversations to export, each with id, title, platform and messages of role and content"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), b.HandleExport)

	s.AddTool(mcp.NewTool(ToolImportStatus,
		mcp.WithDescription("Check the processing status of a MentraFlow import"),
		mcp.WithString("import_id", mcp.Required(), mcp.Description("Import id returned by export_to_mentraflow")),
	), b.HandleImportStatus)

	return s
}

// HandleExport submits the conversations in the call.
func (b *Bridge) HandleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := request.GetString("user_id", b.defaultUser)
	if userID == "" {
		return mcp.NewToolResultError("user_id is required (or set a default user)"), nil
	}

	conversations, err := decodeConversations(request.GetArguments()["conversations"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := b.api.SubmitExport(ctx, userID, conversations)
	if err != nil {
		b.logger.Warn("Export failed", zap.String("user_id", userID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Export failed: %v", err)), nil
	}

	b.logger.Info("Export submitted",
		zap.String("user_id", userID),
		zap.String("import_id", result.ImportID),
		zap.Int("conversations", len(conversations)))
	return mcp.NewToolResultText(fmt.Sprintf(
		"%s\nImport ID: %s\nUse %s to follow progress.", result.Message, result.ImportID, ToolImportStatus)), nil
}

// HandleImportStatus reports an import's progress.
func (b *Bridge) HandleImportStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	importID, err := request.RequireString("import_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	status, err := b.api.ImportStatus(ctx, importID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Status lookup failed: %v", err)), nil
	}

	text := fmt.Sprintf("Import %s is %s (%d%%): %d concepts, %d quizzes, %d knowledge nodes.",
		status.ImportID, status.Status, status.Progress,
		status.ConceptsExtracted, status.QuizzesGenerated, status.NodesCreated)
	if status.Error != "" {
		text += "\nLast error: " + status.Error
	}
	return mcp.NewToolResultText(text), nil
}

// decodeConversations converts the loosely typed tool argument into
// conversations, defaulting the platform.
func decodeConversations(raw any) ([]entities.Conversation, error) {
	if raw == nil {
		return nil, errors.New("conversations is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid conversations: %w", err)
	}
	var conversations []entities.Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, fmt.Errorf("invalid conversations: %w", err)
	}
	if len(conversations) == 0 {
		return nil, errors.New("at least one conversation is required")
	}
	for i := range conversations {
		if conversations[i].Platform == "" {
			conversations[i].Platform = defaultPlatform
		}
	}
	return conversations, nil
}

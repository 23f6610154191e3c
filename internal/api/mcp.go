package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/schedchat/schedchat/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
	Turns TurnHandler
}

// NewMCPServer creates an MCP server exposing the assistant to agent hosts:
// a send_message tool driving the same dialogue loop as the HTTP surface,
// read-only listing tools, and the conversation transcript as a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"schedchat",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("schedchat is a conversational assistant that creates tasks and schedules meetings with reminders."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("send_message",
			mcp.WithDescription("Send one chat message to the scheduling assistant on behalf of a user and get its reply."),
			mcp.WithString("user_id", mcp.Description("Stable identifier of the user"), mcp.Required()),
			mcp.WithString("message", mcp.Description("The user's message"), mcp.Required()),
		),
		mcpSendMessage(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List the tasks the assistant has created for a user, newest first."),
			mcp.WithString("user_id", mcp.Description("Stable identifier of the user"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListTasks(deps),
	)

	s.AddTool(
		mcp.NewTool("list_meetings",
			mcp.WithDescription("List the meetings the assistant has scheduled for a user, ordered by start time."),
			mcp.WithString("user_id", mcp.Description("Stable identifier of the user"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListMeetings(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"schedchat://conversations",
			"Conversations",
			mcp.WithResourceDescription("Recently active conversations (user id, last update, message count)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceConversations(deps),
	)

	return s
}

func mcpSendMessage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		result, err := deps.Turns.HandleTurn(ctx, userID, message)
		if err != nil {
			return mcpError(fmt.Sprintf("turn failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTasks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		limit := req.GetInt("limit", 20)

		tasks, err := deps.Store.ListTasks(ctx, userID, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list tasks: %v", err)), nil
		}
		if tasks == nil {
			tasks = []storage.Task{}
		}

		b, err := json.Marshal(tasks)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tasks: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListMeetings(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		limit := req.GetInt("limit", 20)

		meetings, err := deps.Store.ListMeetings(ctx, userID, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list meetings: %v", err)), nil
		}
		if meetings == nil {
			meetings = []storage.Meeting{}
		}

		b, err := json.Marshal(meetings)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal meetings: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceConversations(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		convs, err := deps.Store.RecentConversations(ctx, 10)
		if err != nil {
			return nil, fmt.Errorf("failed to list conversations: %w", err)
		}

		type convSummary struct {
			UserID    string `json:"user_id"`
			Messages  int    `json:"messages"`
			Pending   bool   `json:"pending_action"`
			UpdatedAt string `json:"updated_at"`
		}

		summaries := make([]convSummary, len(convs))
		for i, c := range convs {
			summaries[i] = convSummary{
				UserID:    c.UserID,
				Messages:  len(c.Messages),
				Pending:   c.Pending != nil,
				UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conversations: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package mcpapi

import (
	"context"
	"fmt"

	"github.com/hylla/kanboard/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerColumnTools registers create/rename/remove/list-cards column tools.
func registerColumnTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.create_column",
			mcp.WithDescription("Append one column to the board."),
			mcp.WithString("id", mcp.Description("Column id (generated when empty)")),
			mcp.WithString("title", mcp.Description("Column title (defaults to a numbered title)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			column, err := board.CreateColumn(ctx, common.CreateColumnRequest{
				ID:    req.GetString("id", ""),
				Title: req.GetString("title", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(column)
			if err != nil {
				return nil, fmt.Errorf("encode create_column result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.rename_column",
			mcp.WithDescription("Rename one column."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Column id")),
			mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			column, err := board.RenameColumn(ctx, common.RenameColumnRequest{ID: id, Title: title})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(column)
			if err != nil {
				return nil, fmt.Errorf("encode rename_column result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.remove_column",
			mcp.WithDescription("Delete one column together with every card it holds."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Column id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.RemoveColumn(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"removed": id})
			if err != nil {
				return nil, fmt.Errorf("encode remove_column result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.column_cards",
			mcp.WithDescription("Return one column and its cards in board order."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Column id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			projection, err := board.ColumnCards(ctx, columnID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(projection)
			if err != nil {
				return nil, fmt.Errorf("encode column_cards result: %w", err)
			}
			return result, nil
		},
	)
}

// registerCardTools registers create/edit/remove card tools.
func registerCardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"kanboard.create_card",
			mcp.WithDescription("Append one card to the end of a column."),
			mcp.WithString("column_id", mcp.Required(), mcp.Description("Owning column id")),
			mcp.WithString("id", mcp.Description("Card id (generated when empty)")),
			mcp.WithString("content", mcp.Description("Markdown content (defaults to a numbered title)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			columnID, err := req.RequireString("column_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			card, err := board.CreateCard(ctx, common.CreateCardRequest{
				ID:       req.GetString("id", ""),
				ColumnID: columnID,
				Content:  req.GetString("content", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(card)
			if err != nil {
				return nil, fmt.Errorf("encode create_card result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.edit_card",
			mcp.WithDescription("Replace one card's content."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
			mcp.WithString("content", mcp.Required(), mcp.Description("New markdown content")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			content, err := req.RequireString("content")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			card, err := board.EditCard(ctx, common.EditCardRequest{ID: id, Content: content})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(card)
			if err != nil {
				return nil, fmt.Errorf("encode edit_card result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanboard.remove_card",
			mcp.WithDescription("Delete one card."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Card id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireString("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err := board.RemoveCard(ctx, id); err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{"removed": id})
			if err != nil {
				return nil, fmt.Errorf("encode remove_card result: %w", err)
			}
			return result, nil
		},
	)
}

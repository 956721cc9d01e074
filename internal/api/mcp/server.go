package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/spirits"
	"github.com/GriffinCanCode/ghostbrain/internal/infrastructure/logging"
)

// ToolConsultSpirits is the tool name clients call.
const ToolConsultSpirits = "consult_spirits"

// Implementation identifies this server to MCP clients.
var Implementation = &sdk.Implementation{Name: "ghostbrain", Version: "1.0.0"}

type consultRequest struct {
	Name string `json:"name"`
}

// NewServer builds an MCP server with the spirit tools registered.
func NewServer(medium *spirits.Medium, logger *logging.Logger) *sdk.Server {
	srv := sdk.NewServer(Implementation, nil)
	registerConsultTool(srv, medium, logging.OrNop(logger).Named("mcp"))
	return srv
}

// Handler serves srv over the streamable HTTP transport.
func Handler(srv *sdk.Server) http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return srv
	}, nil)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func registerConsultTool(srv *sdk.Server, medium *spirits.Medium, logger *logging.Logger) {
	tool := &sdk.Tool{
		Name:        ToolConsultSpirits,
		Description: "Consult the spirits for a scary personalized message.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "The user's name to personalize the message"},
		}, []string{"name"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var r consultRequest
		if err := sonic.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
		}

		omen, err := medium.Consult(r.Name)
		if err != nil {
			logger.Debug("spirits refused", zap.Error(err))
			return toolError(err), nil
		}

		logger.Info("spirits consulted", zap.String("name", r.Name))
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: omen}},
		}, nil
	})
}

func toolError(err error) *sdk.CallToolResult {
	var res sdk.CallToolResult
	res.SetError(err)
	return &res
}

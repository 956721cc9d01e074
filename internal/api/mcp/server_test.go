package mcp

import (
	"context"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ghostbrain/internal/domain/spirits"
)

var testClient = &sdk.Implementation{Name: "ghostbrain-test", Version: "0.1.0"}

func session(t *testing.T, medium *spirits.Medium) *sdk.ClientSession {
	t.Helper()
	srv := NewServer(medium, nil)

	serverT, clientT := sdk.NewInMemoryTransports()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx, serverT) }()

	cs, err := sdk.NewClient(testClient, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callConsult(t *testing.T, cs *sdk.ClientSession, args any) *sdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{
		Name:      ToolConsultSpirits,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func text(t *testing.T, res *sdk.CallToolResult) string {
	t.Helper()
	tc, ok := res.Content[0].(*sdk.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestListTools(t *testing.T) {
	cs := session(t, spirits.New(nil))

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, ToolConsultSpirits, res.Tools[0].Name)
}

func TestConsultSpirits(t *testing.T) {
	cs := session(t, spirits.New(func(int) int { return 3 }))

	res := callConsult(t, cs, map[string]any{"name": "Ada"})
	assert.False(t, res.IsError)
	assert.Equal(t, "The void calls to you, Ada... it hungers...", text(t, res))
}

func TestConsultSpiritsBlankName(t *testing.T) {
	cs := session(t, spirits.New(nil))

	res := callConsult(t, cs, map[string]any{"name": "   "})
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), spirits.ErrNoName.Error())
}

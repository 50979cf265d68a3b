package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/examcore/internal/catalog"
	"github.com/abhisek/examcore/internal/config"
	"github.com/abhisek/examcore/internal/grading"
	"github.com/abhisek/examcore/internal/session"
	"github.com/abhisek/examcore/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat, err := catalog.NewMemory(
		catalog.Item{ID: "n1", Domains: []string{"compute"}, Rule: grading.Rule{
			Kind: grading.KindNumeric, Target: 42, Tolerance: 0.5, Points: 1,
		}},
		catalog.Item{ID: "s1", Domains: []string{"storage"}, Rule: grading.Rule{
			Kind: grading.KindSingleSelect, Correct: []string{"b"}, Points: 1,
		}},
	)
	require.NoError(t, err)
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	svc, err := session.NewService(config.DefaultEngine(), cat, store.NewMemory(),
		session.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return NewServer(svc, "test")
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)
	names := make([]string, 0)
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"examcore_queue", "examcore_submit", "examcore_mastery", "examcore_item_status"}, names)
}

func TestSubmitThenMastery(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.CallTool(ctx, "examcore_submit", map[string]any{
		"user_id": "u1",
		"item_id": "n1",
		"answer":  map[string]any{"kind": "numeric", "value": 42.4},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)

	var out session.AttemptResult
	require.NoError(t, json.Unmarshal([]byte(res.Content), &out))
	assert.Equal(t, 1.0, out.Score)
	assert.Equal(t, 5, out.Quality)

	res, err = s.CallTool(ctx, "examcore_mastery", map[string]any{"user_id": "u1"})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)
	var report session.Report
	require.NoError(t, json.Unmarshal([]byte(res.Content), &report))
	require.Len(t, report.Domains, 1)
	assert.Equal(t, "compute", report.Domains[0].Tag)
}

func TestSubmitErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing answer", map[string]any{"user_id": "u1", "item_id": "n1"}, "answer is required"},
		{"unknown item", map[string]any{
			"user_id": "u1", "item_id": "zz",
			"answer": map[string]any{"kind": "numeric", "value": 1},
		}, "not found"},
		{"malformed answer", map[string]any{
			"user_id": "u1", "item_id": "n1",
			"answer": map[string]any{"kind": "numeric"},
		}, "submit failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := s.CallTool(ctx, "examcore_submit", tc.args)
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Contains(t, res.Content, tc.want)
		})
	}
}

func TestQueueTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.CallTool(context.Background(), "examcore_queue", map[string]any{
		"user_id": "u1",
		"size":    float64(5),
		"domains": []any{"storage"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)

	var q session.Queue
	require.NoError(t, json.Unmarshal([]byte(res.Content), &q))
	assert.Equal(t, []string{"s1"}, q.Items)

	res, err = s.CallTool(context.Background(), "examcore_queue", map[string]any{"user_id": "u1", "size": float64(0)})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestQueueTool_RejectsFractionalSize(t *testing.T) {
	s := newTestServer(t)

	res, err := s.CallTool(context.Background(), "examcore_queue", map[string]any{"user_id": "u1", "size": 2.7})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content, "must be an integer")
}

func TestItemStatusTool(t *testing.T) {
	s := newTestServer(t)
	res, err := s.CallTool(context.Background(), "examcore_item_status", map[string]any{"user_id": "u1", "item_id": "s1"})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Content)
	assert.True(t, strings.Contains(res.Content, `"status": "new"`), res.Content)
}

func TestUnknownTool(t *testing.T) {
	s := newTestServer(t)
	res, err := s.CallTool(context.Background(), "nope", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleMessage_ToolsList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	init := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`
	require.NotNil(t, s.HandleMessage(ctx, json.RawMessage(init)))

	resp := s.HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, tool := range s.ListTools() {
		assert.Contains(t, string(b), tool.Name)
	}
}

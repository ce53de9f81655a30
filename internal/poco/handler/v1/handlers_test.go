package v1

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libreassistant/poco/internal/pkg/core"
	"github.com/libreassistant/poco/internal/poco/pkg/errno"
	"github.com/libreassistant/poco/internal/poco/service/dispatch"
	"github.com/libreassistant/poco/internal/poco/service/gate"
	"github.com/libreassistant/poco/internal/poco/service/history"
	"github.com/libreassistant/poco/internal/poco/service/pluginapi"
	"github.com/libreassistant/poco/internal/poco/service/registry"
	"github.com/libreassistant/poco/internal/poco/service/supervisor"
	"github.com/libreassistant/poco/internal/poco/service/usage"
	"github.com/libreassistant/poco/pkg/utils/json"
)

// --- HTTP helpers ---

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var resp core.ErrResponse
	decodeBody(t, rec, &resp)
	return resp.Code
}

// --- plugin fixture helpers ---

func writeManifest(t *testing.T, root, id string, port int, perms ...string) {
	t.Helper()

	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	quoted := make([]string, 0, len(perms))
	for _, p := range perms {
		quoted = append(quoted, fmt.Sprintf("%q", p))
	}
	manifest := fmt.Sprintf(`{
		"id": %q,
		"name": "Fixture",
		"version": "1.0.0",
		"description": "handler test plugin",
		"author": "test",
		"entrypoint": "/bin/true serve",
		"port": %d,
		"permissions": [%s]
	}`, id, port, strings.Join(quoted, ", "))
	require.NoError(t, os.WriteFile(filepath.Join(dir, registry.ManifestFileName), []byte(manifest), 0o644))
}

type pluginRig struct {
	engine     *gin.Engine
	root       string
	registry   *registry.Module
	gate       *gate.Module
	supervisor *supervisor.Module
}

func newPluginRig(t *testing.T, ids map[string][]string) *pluginRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	port := 46000
	names := make([]string, 0, len(ids))
	for id := range ids {
		names = append(names, id)
	}
	sort.Strings(names)
	for _, id := range names {
		writeManifest(t, root, id, port, ids[id]...)
		port++
	}

	reg, err := (&registry.Config{Root: root}).Complete().New()
	require.NoError(t, err)
	require.NoError(t, reg.Scan())

	g, err := (&gate.Config{GrantsFile: filepath.Join(root, "grants.json")}).Complete().New()
	require.NoError(t, err)

	sup, err := (&supervisor.Config{
		Registry:          reg,
		Gate:              g,
		ReadinessDeadline: time.Second,
		StopDeadline:      time.Second,
	}).Complete().New(context.Background())
	require.NoError(t, err)

	h := NewPluginHandler(reg, g, sup)
	engine := gin.New()
	grp := engine.Group("/v1")
	grp.GET("/plugins", h.List)
	grp.POST("/plugins/rescan", h.Rescan)
	grp.GET("/plugins/:id/status", h.Status)
	grp.POST("/plugins/:id/start", h.Start)
	grp.POST("/plugins/:id/stop", h.Stop)
	grp.POST("/plugins/:id/restart", h.Restart)
	grp.POST("/plugins/:id/approve", h.Approve)

	return &pluginRig{engine: engine, root: root, registry: reg, gate: g, supervisor: sup}
}

func TestPluginListMergesRuntimeAndGrants(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{
		"open":  nil,
		"netty": {"network", "file-read"},
	})

	rec := doJSON(t, rig.engine, http.MethodGet, "/v1/plugins", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PluginListResponse
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Plugins, 2)
	assert.NotEmpty(t, resp.ScannedAt)

	byID := map[string]PluginInfo{}
	for _, p := range resp.Plugins {
		byID[p.ID] = p
	}

	assert.Equal(t, "approved", byID["open"].State, "no declared permissions means nothing to approve")
	assert.Empty(t, byID["open"].Missing)

	assert.Equal(t, "discovered", byID["netty"].State)
	assert.ElementsMatch(t, []registry.Capability{"network", "file-read"}, byID["netty"].Missing)
	assert.Empty(t, byID["netty"].Approved)
}

func TestPluginStatusUnknown(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"open": nil})

	rec := doJSON(t, rig.engine, http.MethodGet, "/v1/plugins/ghost/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrPluginNotFound, errCode(t, rec))
}

func TestPluginStartUnapproved(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"netty": {"network"}})

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/netty/start", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, ErrPluginNotApproved, errCode(t, rec))
}

func TestPluginStartUnknown(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"open": nil})

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/ghost/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrPluginNotFound, errCode(t, rec))
}

func TestPluginStartRejectsMalformedBody(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"open": nil})

	req := httptest.NewRequest(http.MethodPost, "/v1/plugins/open/start", strings.NewReader(`{"options": 42}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	rig.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrBind, errCode(t, rec))
}

func TestPluginStopIdleIsNoOp(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"open": nil})

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/open/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info PluginInfo
	decodeBody(t, rec, &info)
	assert.Equal(t, "approved", info.State)
}

func TestPluginApproveGrantsDeclared(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"netty": {"network"}})

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/netty/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var info PluginInfo
	decodeBody(t, rec, &info)
	assert.Equal(t, "approved", info.State)
	assert.ElementsMatch(t, []registry.Capability{"network"}, info.Approved)
	assert.Empty(t, info.Missing)

	// The grant is durable, not just an in-memory flag.
	raw, err := os.ReadFile(filepath.Join(rig.root, "grants.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "netty")
}

func TestPluginRescanPicksUpNewManifest(t *testing.T) {
	rig := newPluginRig(t, map[string][]string{"open": nil})

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/rescan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var before map[string]interface{}
	decodeBody(t, rec, &before)
	assert.EqualValues(t, 1, before["plugins"])

	writeManifest(t, rig.root, "late-arrival", 46100)

	rec = doJSON(t, rig.engine, http.MethodPost, "/v1/plugins/rescan", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var after map[string]interface{}
	decodeBody(t, rec, &after)
	assert.EqualValues(t, 2, after["plugins"])

	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/plugins/late-arrival/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- chat rig ---

// fakeLM replays canned replies and keeps the flattened content of every
// conversation it was handed.
type fakeLM struct {
	mu     sync.Mutex
	script []string
	calls  int
	seen   [][]string
}

func (f *fakeLM) Call(ctx context.Context, messages []*schema.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", errno.ErrCancelled, err)
	}

	contents := make([]string, 0, len(messages))
	for _, m := range messages {
		contents = append(contents, m.Content)
	}
	f.seen = append(f.seen, contents)

	if f.calls >= len(f.script) {
		return "", fmt.Errorf("%w: script exhausted after %d call(s)", errno.ErrLMUnavailable, f.calls)
	}
	reply := f.script[f.calls]
	f.calls++

	return reply, nil
}

func (f *fakeLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLM) conversation(i int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[i]
}

type fakeInvoker struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeInvoker) Invoke(ctx context.Context, id string, input map[string]interface{}) (*pluginapi.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	return &pluginapi.Response{Success: true, Result: map[string]interface{}{"summary": "sunny, 21C"}}, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticRuntime struct {
	plugins []*registry.PluginDescriptor
}

func (f *staticRuntime) Running() []*registry.PluginDescriptor { return f.plugins }

func (f *staticRuntime) IsRunning(id string) bool {
	for _, d := range f.plugins {
		if d.ID == id {
			return true
		}
	}
	return false
}

type staticModel string

func (s staticModel) ModelName() string { return string(s) }

const messageReply = `{"action":"message","content":{"text":"The weather in Oslo is sunny.","markdown":false}}`

func invokeReply(input string) string {
	return fmt.Sprintf(`{"action":"plugin_invoke","content":{"plugin":"web-search","input":%s,"reason":"look it up"}}`, input)
}

type chatRig struct {
	engine  *gin.Engine
	lm      *fakeLM
	inv     *fakeInvoker
	tracker *usage.Module
}

func newChatRig(t *testing.T, script []string, store history.Store, mutate func(*dispatch.Config)) *chatRig {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lm := &fakeLM{script: script}
	inv := &fakeInvoker{}
	rt := &staticRuntime{plugins: []*registry.PluginDescriptor{
		{ID: "web-search", Description: "search the web", Port: 5101},
	}}

	tracker, err := (&usage.Config{}).Complete().New()
	require.NoError(t, err)

	dcfg := &dispatch.Config{LM: lm, Plugins: inv, Runtime: rt, Tracker: tracker, MaxSteps: 5}
	if mutate != nil {
		mutate(dcfg)
	}
	disp, err := dcfg.Complete().New()
	require.NoError(t, err)

	hist, err := (&history.Config{Store: store}).Complete().New()
	require.NoError(t, err)

	ch := NewChatHandler(disp, hist, staticModel("llama3.2"))
	uh := NewUsageHandler(tracker)
	convh := NewConversationHandler(hist)

	engine := gin.New()
	grp := engine.Group("/v1")
	grp.POST("/chat", ch.Chat)
	grp.GET("/plugins/usage", uh.Report)
	grp.GET("/conversations", convh.List)
	grp.GET("/conversations/:id", convh.Get)

	return &chatRig{engine: engine, lm: lm, inv: inv, tracker: tracker}
}

func TestChatPlainReply(t *testing.T) {
	rig := newChatRig(t, []string{messageReply}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "weather in oslo?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "The weather in Oslo is sunny.", resp.Reply)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.NotEmpty(t, resp.SessionID)
	assert.Empty(t, resp.ConversationID, "history is disabled")
	assert.Equal(t, 1, resp.Steps)
	assert.Equal(t, 0, rig.inv.callCount())
}

func TestChatEchoesRequestedModel(t *testing.T) {
	rig := newChatRig(t, []string{messageReply}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "hi", Model: "mistral"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "mistral", resp.Model)
}

func TestChatRequiresMessage(t *testing.T) {
	rig := newChatRig(t, []string{messageReply}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrBind, errCode(t, rec))

	rec = doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrValidation, errCode(t, rec))

	assert.Equal(t, 0, rig.lm.callCount())
}

func TestChatToolFlowRecordsInvocation(t *testing.T) {
	rig := newChatRig(t, []string{
		invokeReply(`{"operation":"search","q":"oslo weather"}`),
		messageReply,
	}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "weather in oslo?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Steps)
	require.Len(t, resp.Invocations, 1)
	assert.Equal(t, "web-search", resp.Invocations[0].PluginID)
	assert.Equal(t, usage.InvocationSuccess, resp.Invocations[0].Status)
	assert.Equal(t, 1, rig.inv.callCount())
}

func TestChatDisablePluginsSkipsInvocations(t *testing.T) {
	rig := newChatRig(t, []string{
		invokeReply(`{"operation":"search","q":"oslo"}`),
		messageReply,
	}, nil, nil)

	off := false
	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "weather?", EnablePlugins: &off})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "The weather in Oslo is sunny.", resp.Reply)
	assert.Equal(t, 0, rig.inv.callCount())
}

func TestChatBudgetExhausted(t *testing.T) {
	rig := newChatRig(t, []string{
		invokeReply(`{"operation":"search","q":"one"}`),
		invokeReply(`{"operation":"search","q":"two"}`),
	}, nil, func(cfg *dispatch.Config) { cfg.MaxSteps = 2 })

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "loop forever"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, ErrChatBudget, errCode(t, rec))
}

func TestChatConversationRoundTrip(t *testing.T) {
	store := newMemStore()
	rig := newChatRig(t, []string{messageReply, messageReply}, store, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "What is the weather in Oslo?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var first ChatResponse
	decodeBody(t, rec, &first)
	require.NotEmpty(t, first.ConversationID)

	rec = doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{
		Message:        "And tomorrow?",
		ConversationID: first.ConversationID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var second ChatResponse
	decodeBody(t, rec, &second)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	// The second turn saw the stored first exchange.
	turn := rig.lm.conversation(1)
	require.NotEmpty(t, turn)
	joined := strings.Join(turn, "\n")
	assert.Contains(t, joined, "What is the weather in Oslo?")
	assert.Contains(t, joined, "The weather in Oslo is sunny.")

	// Both turns and both replies are stored.
	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/conversations/"+first.ConversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail ConversationDetailResponse
	decodeBody(t, rec, &detail)
	assert.Equal(t, first.ConversationID, detail.ID)
	require.Len(t, detail.Turns, 4)
	assert.Equal(t, "user", detail.Turns[0].Role)
	assert.Equal(t, "assistant", detail.Turns[1].Role)
	assert.Equal(t, "And tomorrow?", detail.Turns[2].Content)
}

func TestConversationListAndMisses(t *testing.T) {
	store := newMemStore()
	rig := newChatRig(t, []string{messageReply}, store, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "hello there"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []ConversationResponse `json:"data"`
	}
	decodeBody(t, rec, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "hello there", list.Data[0].Title)
	assert.Equal(t, 2, list.Data[0].Messages)

	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/conversations/no-such-thread", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrConversationNotFound, errCode(t, rec))
}

func TestConversationEndpointsDisabled(t *testing.T) {
	rig := newChatRig(t, []string{messageReply}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodGet, "/v1/conversations", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, ErrHistoryDisabled, errCode(t, rec))

	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/conversations/any", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestUsageReportEndpoint(t *testing.T) {
	rig := newChatRig(t, []string{
		invokeReply(`{"operation":"search","q":"oslo"}`),
		messageReply,
	}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "weather?"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, rig.engine, http.MethodGet, "/v1/plugins/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report usage.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, 0, report.ActiveSessions)
	assert.Equal(t, 1, report.ArchivedSessions)
	assert.Equal(t, 1, report.TotalInvocations)
	assert.Equal(t, "web-search", report.MostUsedPlugin)
}

func TestChatStreamTraceEmitsEvents(t *testing.T) {
	rig := newChatRig(t, []string{
		invokeReply(`{"operation":"search","q":"oslo"}`),
		messageReply,
	}, nil, nil)

	rec := doJSON(t, rig.engine, http.MethodPost, "/v1/chat", ChatRequest{Message: "weather?", StreamTrace: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	body := rec.Body.String()
	assert.Contains(t, body, "event:meta")
	assert.Contains(t, body, "event:step")
	assert.Contains(t, body, "event:invoke")
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, "The weather in Oslo is sunny.")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
}

// --- in-memory history store ---

type memStore struct {
	mu            sync.Mutex
	conversations map[string]*history.Conversation
	messages      map[string][]*history.Message
}

func newMemStore() *memStore {
	return &memStore{
		conversations: map[string]*history.Conversation{},
		messages:      map[string][]*history.Message{},
	}
}

func (s *memStore) UpsertConversation(_ context.Context, c *history.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.conversations[c.ID]; ok {
		existing.UpdatedAt = c.UpdatedAt
		return nil
	}
	cp := *c
	s.conversations[c.ID] = &cp

	return nil
}

func (s *memStore) GetConversation(_ context.Context, id string) (*history.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errno.ErrConversationNotFound, id)
	}
	cp := *c
	cp.Messages = len(s.messages[id])

	return &cp, nil
}

func (s *memStore) ListConversations(_ context.Context) ([]*history.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*history.Conversation, 0, len(s.conversations))
	for id, c := range s.conversations {
		cp := *c
		cp.Messages = len(s.messages[id])
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	return out, nil
}

func (s *memStore) AppendMessage(_ context.Context, conversationID string, m *history.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.messages[conversationID] = append(s.messages[conversationID], &cp)

	return nil
}

func (s *memStore) Messages(_ context.Context, conversationID string, limit int) ([]*history.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*history.Message, 0, len(msgs))
	for _, m := range msgs {
		cp := *m
		out = append(out, &cp)
	}

	return out, nil
}

func (s *memStore) Close() error { return nil }

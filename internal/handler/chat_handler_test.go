package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gorillaws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-admin-agent/internal/agent"
	"github.com/noah-isme/campus-admin-agent/internal/service"
	"github.com/noah-isme/campus-admin-agent/internal/tools"
	"github.com/noah-isme/campus-admin-agent/pkg/ai"
)

// echoModel answers every turn with the last user message.
type echoModel struct {
	mu       sync.Mutex
	err      error
	requests []ai.ChatRequest
}

func (m *echoModel) Name() string { return "echo" }

func (m *echoModel) Chat(_ context.Context, req ai.ChatRequest) (ai.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return ai.ChatResponse{}, m.err
	}
	last := req.Messages[len(req.Messages)-1]
	return ai.ChatResponse{Content: "echo: " + last.Content}, nil
}

func (m *echoModel) Stream(ctx context.Context, req ai.ChatRequest, fn ai.StreamFunc) (ai.ChatResponse, error) {
	resp, err := m.Chat(ctx, req)
	if err != nil {
		return resp, err
	}
	for _, word := range strings.SplitAfter(resp.Content, " ") {
		if err := fn(ctx, word); err != nil {
			return ai.ChatResponse{}, err
		}
	}
	return resp, nil
}

func (m *echoModel) lastRequest() ai.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

func groupRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	registry := tools.NewRegistry(zerolog.Nop())
	noop := func(context.Context, json.RawMessage) (interface{}, error) { return "ok", nil }
	registry.MustRegister(
		tools.Tool{Name: "list_students", Group: tools.GroupStudentManagement, Handler: noop},
		tools.Tool{Name: "get_total_students", Group: tools.GroupCampusAnalytics, Handler: noop},
		tools.Tool{Name: "get_library_hours", Group: tools.GroupCampusInfo, Handler: noop},
		tools.Tool{Name: "send_email", Group: tools.GroupNotifications, Handler: noop},
	)
	return registry
}

func newChatApp(t *testing.T, model ai.ChatModel) (*fiber.App, agent.Memory) {
	t.Helper()
	memory := agent.NewInMemory(10)
	runner := agent.NewRunner(model, groupRegistry(t), 3, zerolog.Nop())
	h := NewChatHandler(runner, memory, agent.AdminProfile, service.NewValidator(), zerolog.Nop())

	app := fiber.New()
	h.Register(app.Group("/api/v1"))
	h.RegisterWebsocket(app.Group("/ws"))
	return app, memory
}

func sendJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestChatKeepsThreadTranscript(t *testing.T) {
	app, _ := newChatApp(t, &echoModel{})

	status, payload := sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":"hello","user_id":"u1","thread_id":"t1"}`)
	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]interface{})
	require.Equal(t, "echo: hello", data["response"])
	require.Equal(t, "t1", data["thread_id"])

	status, payload = sendJSON(t, app, http.MethodGet, "/api/v1/chat/history?user_id=u1&thread_id=t1", "")
	require.Equal(t, fiber.StatusOK, status)
	turns := payload["data"].(map[string]interface{})["turns"].([]interface{})
	require.Len(t, turns, 2)
	require.Equal(t, "user", turns[0].(map[string]interface{})["role"])
	require.Equal(t, "echo: hello", turns[1].(map[string]interface{})["content"])

	status, _ = sendJSON(t, app, http.MethodGet, "/api/v1/chat/history?user_id=u2&thread_id=t1", "")
	require.Equal(t, fiber.StatusOK, status)

	status, _ = sendJSON(t, app, http.MethodDelete, "/api/v1/chat/history?user_id=u1&thread_id=t1", "")
	require.Equal(t, fiber.StatusOK, status)

	_, payload = sendJSON(t, app, http.MethodGet, "/api/v1/chat/history?user_id=u1&thread_id=t1", "")
	require.Empty(t, payload["data"].(map[string]interface{})["turns"])
}

func TestChatStripsMarkupBeforeTheModel(t *testing.T) {
	model := &echoModel{}
	app, _ := newChatApp(t, model)

	status, payload := sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":"<script>alert(1)</script><b>how many students?</b>"}`)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "echo: how many students?", payload["data"].(map[string]interface{})["response"])
	require.Equal(t, agent.AdminProfile.SystemPrompt, model.lastRequest().System)
}

func TestChatValidatesBody(t *testing.T) {
	app, _ := newChatApp(t, &echoModel{})

	status, payload := sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":""}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "query is required", payload["message"])

	status, payload = sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":"`+strings.Repeat("a", 4001)+`"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "query must be at most 4000 characters", payload["message"])

	status, _ = sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":`)
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestChatReportsModelFailure(t *testing.T) {
	app, memory := newChatApp(t, &echoModel{err: errors.New("upstream timeout")})

	status, payload := sendJSON(t, app, http.MethodPost, "/api/v1/chat", `{"query":"hello","user_id":"u1"}`)
	require.Equal(t, fiber.StatusBadGateway, status)
	require.Equal(t, false, payload["success"])
	require.Equal(t, assistantUnavailable, payload["message"])

	history, err := memory.Load(context.Background(), agent.SessionKey("u1", ""))
	require.NoError(t, err)
	require.Empty(t, history)
}

type chatEvent struct {
	name string
	data map[string]interface{}
}

func postStream(t *testing.T, addr, body string) []chatEvent {
	t.Helper()
	resp, err := http.Post("http://"+addr+"/api/v1/chat/stream", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var (
		events []chatEvent
		name   string
	)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			var data map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data))
			events = append(events, chatEvent{name: name, data: data})
		}
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestChatStreamSendsDeltasThenStoresTurn(t *testing.T) {
	app, memory := newChatApp(t, &echoModel{})
	addr := startFiberServer(t, app)

	events := postStream(t, addr, `{"query":"stream this please","user_id":"u5","thread_id":"s1"}`)
	require.Len(t, events, 5)

	var deltas []string
	for _, evt := range events[:4] {
		require.Equal(t, "delta", evt.name)
		deltas = append(deltas, evt.data["delta"].(string))
	}
	require.Equal(t, []string{"echo: ", "stream ", "this ", "please"}, deltas)

	done := events[4]
	require.Equal(t, "done", done.name)
	require.Equal(t, "echo: stream this please", done.data["response"])
	require.Equal(t, "s1", done.data["thread_id"])

	history, err := memory.Load(context.Background(), agent.SessionKey("u5", "s1"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "stream this please", history[0].Content)
	require.Equal(t, "echo: stream this please", history[1].Content)
}

func TestChatStreamReportsFailureWithoutStoring(t *testing.T) {
	app, memory := newChatApp(t, &echoModel{err: errors.New("upstream timeout")})
	addr := startFiberServer(t, app)

	events := postStream(t, addr, `{"query":"hello","user_id":"u6"}`)
	require.Len(t, events, 1)
	require.Equal(t, "error", events[0].name)
	require.Equal(t, assistantUnavailable, events[0].data["message"])

	history, err := memory.Load(context.Background(), agent.SessionKey("u6", ""))
	require.NoError(t, err)
	require.Empty(t, history)

	status, payload := sendJSON(t, app, http.MethodPost, "/api/v1/chat/stream", `{"query":"  "}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, "query is required", payload["message"])
}

func TestSpecialistRoutesRestrictTools(t *testing.T) {
	model := &echoModel{}
	app, memory := newChatApp(t, model)

	status, _ := sendJSON(t, app, http.MethodPost, "/api/v1/analytics", `{"query":"totals please","user_id":"u1"}`)
	require.Equal(t, fiber.StatusOK, status)

	req := model.lastRequest()
	require.Equal(t, agent.AnalyticsProfile.SystemPrompt, req.System)
	require.Len(t, req.Tools, 1)
	require.Equal(t, "get_total_students", req.Tools[0].Name)

	status, _ = sendJSON(t, app, http.MethodPost, "/api/v1/students", `{"query":"list them"}`)
	require.Equal(t, fiber.StatusOK, status)
	names := make([]string, 0)
	for _, spec := range model.lastRequest().Tools {
		names = append(names, spec.Name)
	}
	require.ElementsMatch(t, []string{"list_students", "send_email"}, names)

	status, _ = sendJSON(t, app, http.MethodPost, "/api/v1/campus_info", `{"query":"when is the curfew?","user_id":"u1"}`)
	require.Equal(t, fiber.StatusOK, status)
	req = model.lastRequest()
	require.Equal(t, agent.CampusInfoProfile.SystemPrompt, req.System)
	require.Len(t, req.Tools, 1)
	require.Equal(t, "get_library_hours", req.Tools[0].Name)

	history, err := memory.Load(context.Background(), agent.SessionKey("u1", ""))
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	app, _ := newChatApp(t, &echoModel{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/chat", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocketAnswersEachFrame(t *testing.T) {
	app, memory := newChatApp(t, &echoModel{})
	addr := startFiberServer(t, app)

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+addr+"/ws/chat?user_id=u9&thread_id=room", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte("hi there")))
	reply := readFrame(t, conn)
	require.Equal(t, true, reply["success"])
	require.Equal(t, "echo: hi there", reply["data"].(map[string]interface{})["response"])

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte(`{"query":"<i>again</i>"}`)))
	reply = readFrame(t, conn)
	require.Equal(t, "echo: again", reply["data"].(map[string]interface{})["response"])

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte("   ")))
	reply = readFrame(t, conn)
	require.Equal(t, false, reply["success"])
	require.Equal(t, "query is required", reply["message"])

	history, err := memory.Load(context.Background(), agent.SessionKey("u9", "room"))
	require.NoError(t, err)
	require.Len(t, history, 4)
}

func readFrame(t *testing.T, conn *gorillaws.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func startFiberServer(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})
	return ln.Addr().String()
}

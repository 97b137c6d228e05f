//go:build !windows

package ws

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/domain/process"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/shared/paths"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testDirs struct{ root string }

func (d testDirs) Root() string { return d.root }

func (d testDirs) ResolveDir(rel string) (string, error) {
	return paths.Resolve(d.root, rel)
}

type harness struct {
	srv      *httptest.Server
	registry *process.Registry
	root     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	reg := process.NewRegistry()
	spawner := process.NewSpawner(reg, process.SpawnerConfig{WaitDelay: time.Second})
	h := NewHandler(reg, spawner, testDirs{root: root}, Config{
		Triggers:     []string{"create-react-app", "create-vite"},
		WriteTimeout: 5 * time.Second,
	}, nil, nil)

	router := gin.New()
	router.GET("/ws", h.HandleConnection)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &harness{srv: srv, registry: reg, root: root}
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// readUntil collects messages up to and including the first of type end.
func readUntil(t *testing.T, conn *websocket.Conn, end MessageType) []Message {
	t.Helper()
	var msgs []Message
	for {
		msg := read(t, conn)
		msgs = append(msgs, msg)
		if msg.Type == end {
			return msgs
		}
	}
}

func contents(msgs []Message, kind MessageType) string {
	var sb strings.Builder
	for _, m := range msgs {
		if m.Type == kind {
			sb.WriteString(m.Content)
		}
	}
	return sb.String()
}

func TestCommandStreamsStdoutInOrder(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"printf A; sleep 0.2; printf B"}`)
	msgs := readUntil(t, conn, TypeClose)

	var outputs []string
	for _, m := range msgs {
		if m.Type == TypeOutput {
			outputs = append(outputs, m.Content)
			assert.Equal(t, "printf A; sleep 0.2; printf B", m.Command)
		}
	}
	require.NotEmpty(t, outputs)
	assert.Equal(t, "A", outputs[0])
	assert.Equal(t, "AB", strings.Join(outputs, ""))

	last := msgs[len(msgs)-1]
	require.NotNil(t, last.Code)
	assert.Equal(t, 0, *last.Code)
}

func TestStderrBecomesErrorMessages(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"echo oops 1>&2; exit 2"}`)
	msgs := readUntil(t, conn, TypeClose)

	assert.Equal(t, "oops\n", contents(msgs, TypeError))
	assert.Equal(t, 2, *msgs[len(msgs)-1].Code)
}

func TestScaffoldCommandCompletes(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"echo npx create-react-app demo; exit 1"}`)
	msgs := readUntil(t, conn, TypeCommandComplete)

	for _, m := range msgs {
		assert.NotEqual(t, TypeClose, m.Type)
	}
	done := msgs[len(msgs)-1]
	require.NotNil(t, done.Code)
	assert.Equal(t, 1, *done.Code)
	assert.Equal(t, ScaffoldNote, done.Message)
}

func TestStopWithNoProcessesSendsNothing(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"stop"}`)
	send(t, conn, `{"type":"ping"}`)

	assert.Equal(t, TypePong, read(t, conn).Type)
}

func TestStopTerminatesOwnProcesses(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)
	other := h.dial(t)

	send(t, other, `{"type":"command","command":"sleep 100"}`)
	send(t, conn, `{"type":"command","command":"sleep 100"}`)
	require.Eventually(t, func() bool { return h.registry.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	send(t, conn, `{"type":"stop"}`)
	msgs := readUntil(t, conn, TypeClose)
	assert.Equal(t, -1, *msgs[len(msgs)-1].Code)

	assert.Equal(t, 1, h.registry.Len(), "other connection's process must survive")
}

func TestMalformedFrameKeepsConnectionOpen(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `this is not json`)
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Content, "not valid JSON")

	send(t, conn, `{"type":"command","command":"echo ok"}`)
	msgs := readUntil(t, conn, TypeClose)
	assert.Equal(t, "ok\n", contents(msgs, TypeOutput))
}

func TestEmptyCommandIsRejected(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"  "}`)
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Content, "command is required")
	assert.Equal(t, 0, h.registry.Len())
}

func TestDisconnectTerminatesProcesses(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"sleep 100"}`)
	send(t, conn, `{"type":"command","command":"sleep 100"}`)
	require.Eventually(t, func() bool { return h.registry.Len() == 2 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.registry.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCommandWithCwd(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.MkdirAll(filepath.Join(h.root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "app", "package.json"), []byte("{}"), 0o644))
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"ls","cwd":"app"}`)
	msgs := readUntil(t, conn, TypeClose)
	assert.Contains(t, contents(msgs, TypeOutput), "package.json")

	send(t, conn, `{"type":"command","command":"ls","cwd":"../.."}`)
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, msg.Content, "escapes")
}

func TestSpawnFailureReportsError(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"command","command":"ls","cwd":"does-not-exist"}`)
	msg := read(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, "ls", msg.Command)
	assert.Contains(t, msg.Content, "failed to start")
	assert.Equal(t, 0, h.registry.Len())
}

func TestPingPong(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	send(t, conn, `{"type":"ping"}`)
	assert.Equal(t, Message{Type: TypePong}, read(t, conn))
}

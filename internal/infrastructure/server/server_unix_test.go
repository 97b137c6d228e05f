//go:build !windows

package server

import (
	"context"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dikshantchitara/CodePilot-AI-Server/internal/api/ws"
	"github.com/dikshantchitara/CodePilot-AI-Server/internal/infrastructure/logging"
)

func dial(t *testing.T, base, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(base, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ws.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg ws.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestCommandOverBothSocketPaths(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t))

	for _, path := range []string{"/ws", "/stream"} {
		t.Run(path, func(t *testing.T) {
			conn := dial(t, ts.URL, path)
			require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "command": "echo hi"}))

			var output strings.Builder
			for {
				msg := readMessage(t, conn)
				if msg.Type == ws.TypeClose {
					require.NotNil(t, msg.Code)
					assert.Equal(t, 0, *msg.Code)
					break
				}
				require.Equal(t, ws.TypeOutput, msg.Type)
				output.WriteString(msg.Content)
			}
			assert.Equal(t, "hi\n", output.String())
		})
	}
}

func TestCommandRunsInWorkspaceRoot(t *testing.T) {
	cfg := testConfig(t)
	_, ts := newTestServer(t, cfg)

	conn := dial(t, ts.URL, "/ws")
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "command": "pwd"}))

	msg := readMessage(t, conn)
	require.Equal(t, ws.TypeOutput, msg.Type)
	root, err := cfg.WorkspaceRoot()
	require.NoError(t, err)

	want, err := os.Stat(root)
	require.NoError(t, err)
	got, err := os.Stat(strings.TrimSpace(msg.Content))
	require.NoError(t, err)
	assert.True(t, os.SameFile(want, got), "ran in %s, want %s", msg.Content, root)
}

func TestShutdownTerminatesRunningCommands(t *testing.T) {
	s, err := newServer(testConfig(t), logging.Nop(), "test")
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	conn := dial(t, "http://"+ln.Addr().String(), "/ws")
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "command", "command": "sleep 100"}))
	require.Eventually(t, func() bool { return s.registry.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, 0, s.registry.Len())

	// The session sees the killed process exit.
	msg := readMessage(t, conn)
	assert.Equal(t, ws.TypeClose, msg.Type)
}

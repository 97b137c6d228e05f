package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Request
		wantErr string
	}{
		{"command", `{"type":"command","command":"npm install"}`, CommandRequest{Command: "npm install"}, ""},
		{"command with cwd", `{"type":"command","command":"ls","cwd":"app"}`, CommandRequest{Command: "ls", Cwd: "app"}, ""},
		{"stop", `{"type":"stop"}`, StopRequest{}, ""},
		{"ping", `{"type":"ping"}`, PingRequest{}, ""},
		{"extra fields ignored", `{"type":"stop","foo":1}`, StopRequest{}, ""},
		{"not json", `hello`, nil, "not valid JSON"},
		{"missing type", `{"command":"ls"}`, nil, "missing type"},
		{"unknown type", `{"type":"dance"}`, nil, `unknown type "dance"`},
		{"empty command", `{"type":"command","command":"   "}`, nil, "command is required"},
		{"missing command", `{"type":"command"}`, nil, "command is required"},
		{"wrong command type", `{"type":"command","command":42}`, nil, `field "command" has the wrong type`},
		{"array", `[1,2]`, nil, "invalid message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.input))
			if tt.wantErr != "" {
				var protoErr *ProtocolError
				require.ErrorAs(t, err, &protoErr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMessageEncoding(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"output", outputMessage("ls", "a\n"), `{"type":"output","content":"a\n","command":"ls"}`},
		{"error", errorMessage("ls", "boom"), `{"type":"error","content":"boom","command":"ls"}`},
		{"close zero code kept", closeMessage("ls", 0), `{"type":"close","command":"ls","code":0}`},
		{"pong", pongMessage(), `{"type":"pong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}

	complete := completeMessage("npx create-vite app", 1)
	require.NotNil(t, complete.Code)
	assert.Equal(t, 1, *complete.Code)
	assert.Equal(t, ScaffoldNote, complete.Message)
}

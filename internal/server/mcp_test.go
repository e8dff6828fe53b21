package server

import (
	"bufio"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"relay/internal/connector"
)

func TestMCPSession(t *testing.T) {
	srv, _ := testSetup(t)
	mcp := NewMCPServer(srv.catalog, &connector.Runtime{Env: srv.rt.Env})

	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"deploy","arguments":{"text":"org/repo"}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"missing"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"bogus"}`,
	}, "\n")

	var out strings.Builder
	if err := mcp.Serve(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatalf("Serve error: %v", err)
	}

	var responses []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out.String()))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid response line %q: %v", sc.Text(), err)
		}
		responses = append(responses, m)
	}
	if len(responses) != 5 {
		t.Fatalf("got %d responses, want 5 (notifications get none)", len(responses))
	}

	tools := responses[1]["result"].(map[string]any)["tools"].([]any)
	if len(tools) != 1 || tools[0].(map[string]any)["name"] != "deploy" {
		t.Errorf("tools = %v, want the deploy command", tools)
	}

	call := responses[2]["result"].(map[string]any)
	text := call["content"].([]any)[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "Pipeline #7") {
		t.Errorf("tool result = %q, want pipeline announcement", text)
	}
	if call["isError"] == true {
		t.Error("deploy call reported an error")
	}

	if responses[3]["result"].(map[string]any)["isError"] != true {
		t.Error("unknown tool should report an error")
	}
	if responses[4]["error"] == nil {
		t.Error("unknown method should return a JSON-RPC error")
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/xerrors"

	"relay/internal/connector"
	"relay/internal/pipelines"
)

const (
	mcpProtocolVersion = "2024-11-05"

	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
)

// MCPServer speaks the Model Context Protocol over newline-delimited
// JSON-RPC and offers every routed slash command as a tool.
type MCPServer struct {
	catalog *pipelines.Catalog
	rt      *connector.Runtime
}

func NewMCPServer(catalog *pipelines.Catalog, rt *connector.Runtime) *MCPServer {
	return &MCPServer{catalog: catalog, rt: rt}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func reply(id, result any) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func replyError(id any, code int, msg string) *rpcResponse {
	return &rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

type toolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type toolText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content []toolText `json:"content"`
	IsError bool       `json:"isError,omitempty"`
}

// Serve answers requests read from in until in is exhausted or ctx is done.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := json.NewDecoder(in)
	enc := json.NewEncoder(out)

	for ctx.Err() == nil {
		var req rpcRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return xerrors.Errorf("decoding request: %w", err)
		}

		resp := s.dispatch(ctx, req)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return xerrors.Errorf("encoding response: %w", err)
		}
	}
	return ctx.Err()
}

// dispatch returns nil for notifications.
func (s *MCPServer) dispatch(ctx context.Context, req rpcRequest) *rpcResponse {
	switch req.Method {
	case "initialize":
		return reply(req.ID, map[string]any{
			"protocolVersion": mcpProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]string{"name": "relay", "version": "0.1.0"},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return reply(req.ID, map[string]any{"tools": s.tools()})
	case "tools/call":
		var call toolCall
		if err := json.Unmarshal(req.Params, &call); err != nil {
			return replyError(req.ID, rpcInvalidParams, "invalid params: "+err.Error())
		}
		return reply(req.ID, s.call(ctx, call))
	}
	return replyError(req.ID, rpcMethodNotFound, "method not found: "+req.Method)
}

func (s *MCPServer) tools() []toolInfo {
	routes := s.catalog.Routes.Commands
	tools := make([]toolInfo, 0, len(routes))
	for _, route := range routes {
		tools = append(tools, toolInfo{
			Name:        route.Name(),
			Description: describeRoute(route.Description, route.Pipelines),
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "command arguments, as typed after " + route.Command,
					},
				},
			},
		})
	}
	return tools
}

func describeRoute(desc string, names []string) string {
	if desc != "" {
		return desc
	}
	var parts []string
	for _, name := range names {
		if d, ok := pipelines.Lookup(name); ok {
			parts = append(parts, d.Description+" Usage: "+d.Usage)
		}
	}
	return strings.Join(parts, " ")
}

func (s *MCPServer) call(ctx context.Context, call toolCall) toolResult {
	text, _ := call.Arguments["text"].(string)

	resp, err := s.catalog.RunCommand(ctx, s.rt, call.Name, "mcp", text)
	if err != nil {
		return toolResult{Content: []toolText{{Type: "text", Text: "error: " + err.Error()}}, IsError: true}
	}
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return toolResult{Content: []toolText{{Type: "text", Text: "error: " + err.Error()}}, IsError: true}
	}
	return toolResult{Content: []toolText{{Type: "text", Text: string(out)}}}
}

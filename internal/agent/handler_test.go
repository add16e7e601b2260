package agent

import (
	"context"
	"errors"
	"testing"
)

type stubTool struct {
	schema map[string]interface{}
	result interface{}
	err    error
}

func (s stubTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return s.result, s.err
}

func (s stubTool) Schema() map[string]interface{} { return s.schema }

type stubResource struct {
	result interface{}
	err    error
}

func (s stubResource) Read(ctx context.Context) (interface{}, error) { return s.result, s.err }

func TestHandleInitializeReturnsServerInfo(t *testing.T) {
	h := NewHandler()
	resp := h.Handle(context.Background(), &JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map result, got %T", resp.Result)
	}
	if result["protocolVersion"] == "" {
		t.Fatal("expected non-empty protocolVersion")
	}
}

func TestHandleUnknownMethodReturnsMethodNotFound(t *testing.T) {
	h := NewHandler()
	resp := h.Handle(context.Background(), &JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "nonexistent"})
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method-not-found error, got %+v", resp.Error)
	}
}

func TestHandleToolCallDispatchesToRegisteredTool(t *testing.T) {
	h := NewHandler()
	h.RegisterTool("echo", stubTool{result: "hi"})

	resp := h.Handle(context.Background(), &JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call",
		Params: map[string]interface{}{"name": "echo", "arguments": map[string]interface{}{}},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if resp.Result != "hi" {
		t.Fatalf("expected result 'hi', got %v", resp.Result)
	}
}

func TestHandleToolCallUnknownToolReturnsInvalidParams(t *testing.T) {
	h := NewHandler()
	resp := h.Handle(context.Background(), &JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call",
		Params: map[string]interface{}{"name": "missing"},
	})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid-params error, got %+v", resp.Error)
	}
}

func TestHandleToolCallExecutionErrorReturnsInternalError(t *testing.T) {
	h := NewHandler()
	h.RegisterTool("fails", stubTool{err: errors.New("boom")})
	resp := h.Handle(context.Background(), &JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call",
		Params: map[string]interface{}{"name": "fails"},
	})
	if resp.Error == nil || resp.Error.Code != codeInternalError {
		t.Fatalf("expected internal error, got %+v", resp.Error)
	}
}

func TestHandleResourceReadDispatchesToRegisteredResource(t *testing.T) {
	h := NewHandler()
	h.RegisterResource("summary", stubResource{result: "ok"})
	resp := h.Handle(context.Background(), &JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "resources/read",
		Params: map[string]interface{}{"name": "summary"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if resp.Result != "ok" {
		t.Fatalf("expected result 'ok', got %v", resp.Result)
	}
}

func TestHandleToolsListEnumeratesRegisteredTools(t *testing.T) {
	h := NewHandler()
	h.RegisterTool("a", stubTool{schema: map[string]interface{}{"x": "y"}})
	resp := h.Handle(context.Background(), &JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	result := resp.Result.(map[string]interface{})
	list := result["tools"].([]map[string]interface{})
	if len(list) != 1 || list[0]["name"] != "a" {
		t.Fatalf("expected one tool named 'a', got %+v", list)
	}
}

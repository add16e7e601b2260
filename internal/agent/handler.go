package agent

import "context"

// Tool is one callable agent-surface tool.
type Tool interface {
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
	Schema() map[string]interface{}
}

// Resource is one read-only agent-surface resource.
type Resource interface {
	Read(ctx context.Context) (interface{}, error)
}

// Handler dispatches JSON-RPC requests against registered tools and
// resources, the same shape for every transport.
type Handler struct {
	tools     map[string]Tool
	resources map[string]Resource
}

// NewHandler constructs an empty Handler; callers register tools and
// resources with RegisterTool/RegisterResource before serving requests.
func NewHandler() *Handler {
	return &Handler{
		tools:     make(map[string]Tool),
		resources: make(map[string]Resource),
	}
}

func (h *Handler) RegisterTool(name string, tool Tool) {
	h.tools[name] = tool
}

func (h *Handler) RegisterResource(name string, resource Resource) {
	h.resources[name] = resource
}

// Handle processes one request and returns the response to send back.
func (h *Handler) Handle(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "tools/list":
		return h.handleToolsList(req)
	case "tools/call":
		return h.handleToolCall(ctx, req)
	case "resources/list":
		return h.handleResourcesList(req)
	case "resources/read":
		return h.handleResourceRead(ctx, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *Handler) handleInitialize(req *JSONRPCRequest) *JSONRPCResponse {
	return resultResponse(req.ID, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
		},
		"serverInfo": map[string]string{
			"name":    "kissa-agent",
			"version": "0.1.0",
		},
	})
}

func (h *Handler) handleToolsList(req *JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(h.tools))
	for name, tool := range h.tools {
		list = append(list, map[string]interface{}{
			"name":   name,
			"schema": tool.Schema(),
		})
	}
	return resultResponse(req.ID, map[string]interface{}{"tools": list})
}

func (h *Handler) handleToolCall(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	name, ok := req.Params["name"].(string)
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, "invalid params: 'name' is required")
	}
	tool, exists := h.tools[name]
	if !exists {
		return errorResponse(req.ID, codeInvalidParams, "tool not found: "+name)
	}
	args, ok := req.Params["arguments"].(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	result, err := tool.Execute(ctx, args)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, "tool execution error: "+err.Error())
	}
	return resultResponse(req.ID, result)
}

func (h *Handler) handleResourcesList(req *JSONRPCRequest) *JSONRPCResponse {
	list := make([]map[string]interface{}, 0, len(h.resources))
	for name := range h.resources {
		list = append(list, map[string]interface{}{"name": name})
	}
	return resultResponse(req.ID, map[string]interface{}{"resources": list})
}

func (h *Handler) handleResourceRead(ctx context.Context, req *JSONRPCRequest) *JSONRPCResponse {
	name, ok := req.Params["name"].(string)
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, "invalid params: 'name' is required")
	}
	resource, exists := h.resources[name]
	if !exists {
		return errorResponse(req.ID, codeInvalidParams, "resource not found: "+name)
	}
	result, err := resource.Read(ctx)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, "resource read error: "+err.Error())
	}
	return resultResponse(req.ID, result)
}

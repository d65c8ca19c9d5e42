package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dukes-snr/EazyUi-sub001/kit"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

// RegisterMCP registers editor tools on an MCP server. The tool surface
// mirrors the HTTP API: session lifecycle, patching, history, selection.
func (e *Editor) RegisterMCP(srv *mcp.Server) {
	e.registerListScreensTool(srv)
	e.registerGetScreenTool(srv)
	e.registerEnterEditTool(srv)
	e.registerExitEditTool(srv)
	e.registerStateTool(srv)
	e.registerPatchTool(srv)
	e.registerUndoTool(srv)
	e.registerRedoTool(srv)
	e.registerSelectTool(srv)
	e.registerDeleteSelectedTool(srv)
	e.registerQueryTool(srv)
}

// mcpEnrich tags tool calls with their transport so the shared call log and
// the tracing driver can tell surfaces apart.
func mcpEnrich(ctx context.Context) context.Context {
	return kit.WithTransport(ctx, "mcp")
}

// register wires an endpoint through the shared middleware chain before
// handing it to the MCP plumbing.
func (e *Editor) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	endpoint = kit.Chain(e.toolLogging(tool.Name), toolErrors(tool.Name))(endpoint)
	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// toolLogging emits one debug line per tool call with the request metadata
// the context carries.
func (e *Editor) toolLogging(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			e.logger.Debug("editor: tool call",
				"tool", name,
				"transport", kit.GetTransport(ctx),
				"trace_id", kit.GetTraceID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			return resp, err
		}
	}
}

// toolErrors prefixes endpoint errors with the tool name.
func toolErrors(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return resp, nil
		}
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- screens ---

type listScreensRequest struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (e *Editor) registerListScreensTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_list_screens",
		Description: "List stored screens, most recently updated first.",
		InputSchema: inputSchema(map[string]any{
			"status": map[string]any{"type": "string", "enum": []any{"draft", "review", "final"}, "description": "Filter by workflow status"},
			"limit":  map[string]any{"type": "integer", "description": "Max results"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listScreensRequest)
		screens, err := e.store.ListScreens(ctx, r.Status, r.Limit)
		if err != nil {
			return nil, err
		}
		for _, s := range screens {
			s.HTML = ""
		}
		return map[string]any{"screens": screens}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r listScreensRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
	}

	e.register(srv, tool, endpoint, decode)
}

type screenIDRequest struct {
	ScreenID string `json:"screen_id"`
}

func decodeScreenID(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r screenIDRequest
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	if r.ScreenID == "" {
		return nil, errors.New("screen_id required")
	}
	return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
}

var screenIDSchema = inputSchema(map[string]any{
	"screen_id": map[string]any{"type": "string", "description": "Screen identifier"},
}, []string{"screen_id"})

func (e *Editor) registerGetScreenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_get_screen",
		Description: "Fetch a screen, including its serialized HTML.",
		InputSchema: screenIDSchema,
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*screenIDRequest)
		scr, err := e.store.GetScreen(ctx, r.ScreenID)
		if err != nil {
			return nil, err
		}
		if scr == nil {
			return nil, errors.New("screen not found")
		}
		return scr, nil
	}

	e.register(srv, tool, endpoint, decodeScreenID)
}

// --- session lifecycle ---

func (e *Editor) registerEnterEditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_enter_edit",
		Description: "Enter edit mode on a screen. Flushes and switches when a session is already live.",
		InputSchema: screenIDSchema,
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*screenIDRequest)
		return e.SwitchEdit(ctx, r.ScreenID)
	}

	e.register(srv, tool, endpoint, decodeScreenID)
}

type emptyRequest struct{}

func decodeEmpty(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return &kit.MCPDecodeResult{Request: &emptyRequest{}, EnrichCtx: mcpEnrich}, nil
}

func (e *Editor) registerExitEditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_exit_edit",
		Description: "Exit edit mode, reconciling pending edits into the screen store.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		if err := e.ExitEdit(ctx); err != nil {
			return nil, err
		}
		return map[string]string{"status": "exited"}, nil
	}

	e.register(srv, tool, endpoint, decodeEmpty)
}

func (e *Editor) registerStateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_edit_state",
		Description: "Report the live edit session: screen, history cursor, current selection.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		state := e.State()
		if state == nil {
			return nil, errors.New("no active edit session")
		}
		return state, nil
	}

	e.register(srv, tool, endpoint, decodeEmpty)
}

// --- patching and history ---

func (e *Editor) registerPatchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name: "eazyui_apply_patch",
		Description: "Apply a patch to the screen being edited. " +
			"Ops: set_text, set_style, set_attr, set_classes, delete_node.",
		InputSchema: inputSchema(map[string]any{
			"op":     map[string]any{"type": "string", "enum": []any{"set_text", "set_style", "set_attr", "set_classes", "delete_node"}},
			"uid":    map[string]any{"type": "string", "description": "Target element uid"},
			"text":   map[string]any{"type": "string", "description": "set_text: new text content"},
			"style":  map[string]any{"type": "object", "description": "set_style: property/value merge; empty value removes"},
			"attr":   map[string]any{"type": "object", "description": "set_attr: key/value merge"},
			"add":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "set_classes: classes to add"},
			"remove": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "set_classes: classes to remove"},
		}, []string{"op", "uid"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		p := req.(*patch.Patch)
		if err := e.PushPatch(ctx, *p); err != nil {
			return nil, err
		}
		return e.State(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p patch.Patch
		if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p, EnrichCtx: mcpEnrich}, nil
	}

	e.register(srv, tool, endpoint, decode)
}

func (e *Editor) registerUndoTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_undo",
		Description: "Undo the last patch. The sandbox reloads the rebuilt document.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		moved, err := e.Undo(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"moved": moved, "state": e.State()}, nil
	}

	e.register(srv, tool, endpoint, decodeEmpty)
}

func (e *Editor) registerRedoTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_redo",
		Description: "Redo a previously undone patch.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		moved, err := e.Redo(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"moved": moved, "state": e.State()}, nil
	}

	e.register(srv, tool, endpoint, decodeEmpty)
}

// --- selection ---

type selectRequest struct {
	UID string `json:"uid"`
}

func (e *Editor) registerSelectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_select",
		Description: "Select an element by uid in the live session.",
		InputSchema: inputSchema(map[string]any{
			"uid": map[string]any{"type": "string", "description": "Element uid"},
		}, []string{"uid"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*selectRequest)
		if err := e.SelectUID(r.UID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "sent"}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r selectRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.UID == "" {
			return nil, errors.New("uid required")
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
	}

	e.register(srv, tool, endpoint, decode)
}

type queryRequest struct {
	Selector string `json:"selector"`
}

func (e *Editor) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_query",
		Description: "Find elements in the screen being edited by CSS selector; returns their uids.",
		InputSchema: inputSchema(map[string]any{
			"selector": map[string]any{"type": "string", "description": "Selector subset: tag, .class, #id, [attr], [attr=val], descendants"},
		}, []string{"selector"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*queryRequest)
		uids, err := e.QuerySelector(r.Selector)
		if err != nil {
			return nil, err
		}
		return map[string]any{"uids": uids}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r queryRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.Selector == "" {
			return nil, errors.New("selector required")
		}
		return &kit.MCPDecodeResult{Request: &r, EnrichCtx: mcpEnrich}, nil
	}

	e.register(srv, tool, endpoint, decode)
}

func (e *Editor) registerDeleteSelectedTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "eazyui_delete_selected",
		Description: "Request deletion of the selected element. The screen root is never deleted.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		if err := e.DeleteSelected(); err != nil {
			return nil, err
		}
		return map[string]string{"status": "requested"}, nil
	}

	e.register(srv, tool, endpoint, decodeEmpty)
}

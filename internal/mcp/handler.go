package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/version"
)

// handleMessage processes an incoming message and returns the response.
// Notifications produce no response.
func (s *MCPServer) handleMessage(ctx context.Context, msg *MCPMessage) *MCPMessage {
	if msg == nil {
		return NewErrorMessage(nullID, ParseError, "Parse error: empty message", nil)
	}
	if msg.IsRequest() {
		return s.handleRequest(ctx, msg)
	}
	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}
	return NewErrorMessage(msg.Id, InvalidRequest, "Invalid message: not a request or notification", nil)
}

// handleRequest handles a JSON-RPC request
func (s *MCPServer) handleRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	s.logger.Debug("Handling request",
		"method", msg.Method,
		"id", string(msg.Id),
	)

	switch msg.Method {
	case "initialize":
		return s.handleInitializeRequest(msg)
	case "tools/list":
		return NewResultMessage(msg.Id, map[string]interface{}{"tools": s.GetToolDefinitions()})
	case "tools/call":
		return s.handleCallToolRequest(ctx, msg)
	case "ping":
		return NewResultMessage(msg.Id, map[string]interface{}{})
	default:
		return NewErrorMessage(msg.Id, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

// handleNotification handles a JSON-RPC notification
func (s *MCPServer) handleNotification(msg *MCPMessage) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("Client initialized")
	default:
		s.logger.Debug("Unknown notification", "method", msg.Method)
	}
}

// InitializeResult represents the result of the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities lists what the server offers. Only tools are served.
type ServerCapabilities struct {
	Tools struct{} `json:"tools"`
}

// ServerInfo identifies the server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *MCPServer) handleInitializeRequest(msg *MCPMessage) *MCPMessage {
	var params struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		ClientInfo      map[string]interface{} `json:"clientInfo"`
	}
	if err := msg.params(&params); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: "+err.Error(), nil)
	}
	s.logger.Info("MCP server initializing",
		"clientProtocol", params.ProtocolVersion,
		"clientInfo", params.ClientInfo,
	)
	return NewResultMessage(msg.Id, &InitializeResult{
		ProtocolVersion: version.ProtocolVersion,
		ServerInfo: ServerInfo{
			Name:    version.ServerName,
			Version: s.version,
		},
	})
}

type callParams struct {
	Name      *string                `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// handleCallToolRequest handles tools/call. Handler failures become
// error responses; NOT_FOUND is returned as a successful result whose
// envelope carries the message.
func (s *MCPServer) handleCallToolRequest(ctx context.Context, msg *MCPMessage) *MCPMessage {
	var params callParams
	if len(msg.Params) == 0 {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: expected object", nil)
	}
	if params.Name == nil || *params.Name == "" {
		return NewErrorMessage(msg.Id, InvalidParams, "Invalid params: name is required", nil)
	}
	name := *params.Name
	handler, ok := s.tools[name]
	if !ok {
		return NewErrorMessage(msg.Id, InvalidParams, fmt.Sprintf("Unknown tool: %s", name), nil)
	}
	if params.Arguments == nil {
		params.Arguments = make(map[string]interface{})
	}

	start := time.Now()
	resp, err := s.invoke(ctx, name, handler, params.Arguments)
	s.logger.Info("Tool call",
		"tool", name,
		"operation", params.Arguments["operation"],
		"duration", time.Since(start).String(),
		"ok", err == nil,
	)
	if err != nil {
		var ae *auraerrors.AuraError
		if !errors.As(err, &ae) {
			return NewErrorMessage(msg.Id, ToolExecutionError, err.Error(), nil)
		}
		switch ae.Code {
		case auraerrors.NotFound:
			resp = envelope.New().Data(ae.Details).ErrorMessage(ae.Message).Build()
		case auraerrors.InvalidArgument, auraerrors.InvalidOperation:
			return NewErrorMessage(msg.Id, InvalidParams, ae.Message, ae)
		default:
			return NewErrorMessage(msg.Id, ToolExecutionError, failureText(ae), ae)
		}
	}

	text, err := json.Marshal(resp)
	if err != nil {
		return NewErrorMessage(msg.Id, ToolExecutionError, "marshal response: "+err.Error(), nil)
	}
	return NewResultMessage(msg.Id, map[string]interface{}{
		"content": []map[string]interface{}{
			{
				"type": "text",
				"text": string(text),
			},
		},
	})
}

// invoke runs a handler, turning a panic into a tool execution error.
func (s *MCPServer) invoke(ctx context.Context, name string, h ToolHandler, args map[string]interface{}) (resp *envelope.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tool panicked",
				"tool", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			resp, err = nil, auraerrors.NewAuraError(auraerrors.ToolExecution, fmt.Sprintf("%s failed: %v", name, r), nil, nil)
		}
	}()
	resp, err = h(ctx, args)
	if err == nil && resp == nil {
		err = auraerrors.NewAuraError(auraerrors.InternalError, name+" returned no result", nil, nil)
	}
	return resp, err
}

// failureText is the message of ae followed by its cause, without the code.
func failureText(ae *auraerrors.AuraError) string {
	if cause := ae.Unwrap(); cause != nil {
		return ae.Message + ": " + cause.Error()
	}
	return ae.Message
}

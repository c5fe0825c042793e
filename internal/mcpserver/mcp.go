package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/librescoot/arduino-mcp-adapter/internal/link"
	"github.com/librescoot/arduino-mcp-adapter/internal/manifest"
	"github.com/librescoot/arduino-mcp-adapter/internal/wire"
)

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "failed to read request body", nil))
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusOK, errorResponse(nil, codeParseError, "invalid JSON", nil))
		return
	}

	switch req.Method {
	case "initialize":
		writeJSON(w, http.StatusOK, s.handleInitialize(req))
	case "notifications/initialized":
		s.handleNotificationsInitialized(w, r)
	case "tools/list":
		writeJSON(w, http.StatusOK, s.handleToolsList(req))
	case "tools/call":
		writeJSON(w, http.StatusOK, s.handleToolsCall(req))
	default:
		writeJSON(w, http.StatusOK, errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil))
	}
}

func (s *Server) handleInitialize(req Request) Response {
	return resultResponse(req.ID, map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo": map[string]string{
			"name":    serviceName,
			"version": serviceVersion,
		},
		"capabilities": map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	})
}

// handleNotificationsInitialized keeps the connection open as a
// server-sent-events stream rather than replying with a single body. A
// client implementation that expects a bare 204 is equally spec-compliant;
// this adapter exercises the streaming shape instead.
func (s *Server) handleNotificationsInitialized(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	<-r.Context().Done()
}

func (s *Server) handleToolsList(req Request) Response {
	st := s.Link.State()
	if !st.IsReady() {
		return resultResponse(req.ID, map[string]interface{}{
			"tools": []manifest.Tool{},
			"_status": map[string]interface{}{
				"robot_state": st.Phase.String(),
				"message":     st.ErrorMessage(),
			},
		})
	}

	m, err := s.Manifests.Get(st.DeviceID)
	if err != nil {
		return resultResponse(req.ID, map[string]interface{}{
			"tools": []manifest.Tool{runPythonScriptTool()},
			"_status": map[string]interface{}{
				"robot_state": st.Phase.String(),
				"message":     fmt.Sprintf("manifest unavailable: %v", err),
			},
		})
	}

	tools := append(m.ToolsList(), runPythonScriptTool())
	return resultResponse(req.ID, map[string]interface{}{"tools": tools})
}

func runPythonScriptTool() manifest.Tool {
	return manifest.Tool{
		Name:        runPythonScriptToolName,
		Description: "Run a Python script that can call any currently available tool via the `tools` namespace.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"script":  map[string]interface{}{"type": "string", "description": "Python source to execute"},
				"timeout": map[string]interface{}{"type": "integer", "description": "Timeout in seconds (1-300, default 60)"},
			},
			"required": []string{"script"},
		},
	}
}

func (s *Server) handleToolsCall(req Request) Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params", nil)
	}

	st := s.Link.State()
	if !st.IsReady() {
		return errorResponse(req.ID, codeInternalError, "device is not ready", map[string]interface{}{
			"robot_state": st.Phase.String(),
			"suggestion":  st.ErrorMessage(),
		})
	}

	if params.Name == runPythonScriptToolName {
		return s.handleRunPythonScript(req, params)
	}

	m, err := s.Manifests.Get(st.DeviceID)
	if err != nil {
		return errorResponse(req.ID, codeInternalError, fmt.Sprintf("failed to load manifest: %v", err), nil)
	}

	fn, ok := m.FindFunction(params.Name)
	if !ok {
		return errorResponse(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name), nil)
	}

	arguments, err := decodeArguments(params.Arguments)
	if err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error(), nil)
	}
	if err := manifest.ValidateArguments(fn, arguments); err != nil {
		return errorResponse(req.ID, codeInvalidParams, err.Error(), nil)
	}

	text, err := s.executeFunction(fn, arguments)
	if err != nil {
		var devErr *link.DeviceError
		if errors.As(err, &devErr) {
			s.publishCallCompletion(params.Name, false, devErr.Error())
			return resultResponse(req.ID, errorTextResult(devErr.Error()))
		}
		s.publishCallCompletion(params.Name, false, err.Error())
		return errorResponse(req.ID, codeInternalError, err.Error(), nil)
	}

	s.publishCallCompletion(params.Name, true, text)
	return resultResponse(req.ID, textResult(text))
}

func (s *Server) executeFunction(fn manifest.Function, arguments map[string]json.RawMessage) (string, error) {
	payload, err := manifest.EncodeArguments(fn, arguments)
	if err != nil {
		return "", err
	}

	response, err := s.Link.Transact(fn.Tag, payload)
	if err != nil {
		return "", err
	}

	returnType := wire.ParamType(fn.Return)
	return wire.DecodeReturn(response, returnType)
}

func decodeArguments(raw json.RawMessage) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.New("arguments must be a JSON object")
	}
	return m, nil
}

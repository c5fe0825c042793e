package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/librescoot/arduino-mcp-adapter/internal/scriptrunner"
)

type runPythonScriptParams struct {
	Script  string `json:"script"`
	Timeout int    `json:"timeout"`
}

func (s *Server) handleRunPythonScript(req Request, call toolCallParams) Response {
	var p runPythonScriptParams
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &p); err != nil {
			return errorResponse(req.ID, codeInvalidParams, "invalid runPythonScript arguments", nil)
		}
	}
	if p.Script == "" {
		return errorResponse(req.ID, codeInvalidParams, "script parameter is required", nil)
	}

	output, err := s.Scripts.Run(context.Background(), p.Script, p.Timeout)
	if err != nil {
		if errors.Is(err, scriptrunner.ErrTimeout) {
			s.publishCallCompletion(runPythonScriptToolName, false, err.Error())
			return errorResponse(req.ID, codeInternalError, err.Error(), nil)
		}
		if output == "" {
			return errorResponse(req.ID, codeInvalidParams, err.Error(), nil)
		}
		s.publishCallCompletion(runPythonScriptToolName, false, err.Error())
		return resultResponse(req.ID, errorTextResult(output+"\n\nerror: "+err.Error()))
	}
	s.publishCallCompletion(runPythonScriptToolName, true, output)
	return resultResponse(req.ID, textResult(output))
}

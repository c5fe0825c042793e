package manifest

// Tool is the MCP projection of a Function: its name, human description,
// and a JSON-Schema-ish description of its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolsList projects every function in m into an MCP Tool descriptor.
func (m *Manifest) ToolsList() []Tool {
	tools := make([]Tool, 0, len(m.Functions))
	for _, f := range m.Functions {
		tools = append(tools, Tool{
			Name:        f.Name,
			Description: f.Desc,
			InputSchema: inputSchema(f),
		})
	}
	return tools
}

func inputSchema(f Function) map[string]any {
	properties := make(map[string]any, len(f.Params))
	required := make([]string, 0, len(f.Params))

	for _, p := range f.Params {
		properties[p.Name] = map[string]any{"type": jsonTypeFor(p.Type)}
		required = append(required, p.Name)
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

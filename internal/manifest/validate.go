package manifest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/librescoot/arduino-mcp-adapter/internal/wire"
)

const (
	i16Min = -32768
	i16Max = 32767
)

// ValidateArguments enforces that arguments contains exactly the parameters
// f declares, with values of a compatible type, producing an actionable,
// human-readable error that enumerates the expected parameter set on any
// mismatch.
func ValidateArguments(f Function, arguments map[string]json.RawMessage) error {
	if len(f.Params) == 0 && len(arguments) > 0 {
		provided := sortedKeys(arguments)
		return fmt.Errorf("function %q takes no parameters, but you provided: [%s]. Remove all arguments",
			f.Name, strings.Join(provided, ", "))
	}

	if len(f.Params) > 0 && len(arguments) == 0 {
		return fmt.Errorf("function %q requires %d parameter(s): [%s]. Please provide all required arguments",
			f.Name, len(f.Params), paramSpecs(f.Params))
	}

	for name := range arguments {
		if !hasParam(f.Params, name) {
			return fmt.Errorf("invalid parameter %q for function %q. Valid parameters are: [%s]",
				name, f.Name, paramSpecs(f.Params))
		}
	}

	for _, p := range f.Params {
		raw, ok := arguments[p.Name]
		if !ok {
			return fmt.Errorf("missing required parameter %q (type: %s) for function %q. Please add this parameter to your arguments",
				p.Name, jsonTypeFor(p.Type), f.Name)
		}
		if err := validateValue(p, raw); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(p Parameter, raw json.RawMessage) error {
	switch p.Type {
	case string(wire.TypeI16), string(wire.TypeI32):
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("parameter %q must be a number (type: %s), but got %s. Please provide a numeric value",
				p.Name, jsonTypeFor(p.Type), string(raw))
		}
		if p.Type == string(wire.TypeI16) && (n < i16Min || n > i16Max) {
			return fmt.Errorf("parameter %q value %v is out of range for i16 (%d to %d)", p.Name, n, i16Min, i16Max)
		}
	case string(wire.TypeF32), string(wire.TypeF64):
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("parameter %q must be a number (type: %s), but got %s", p.Name, jsonTypeFor(p.Type), string(raw))
		}
	case string(wire.TypeCStr):
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("parameter %q must be a string, but got %s. Please provide a string value in quotes", p.Name, string(raw))
		}
	case string(wire.TypeBool):
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("parameter %q must be a boolean (true/false), but got %s", p.Name, string(raw))
		}
	default:
		// Unknown parameter types accept any scalar and are treated as
		// strings at encode time.
	}
	return nil
}

func hasParam(params []Parameter, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

func paramSpecs(params []Parameter) string {
	specs := make([]string, len(params))
	for i, p := range params {
		specs[i] = fmt.Sprintf("%s: %s", p.Name, jsonTypeFor(p.Type))
	}
	return strings.Join(specs, ", ")
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

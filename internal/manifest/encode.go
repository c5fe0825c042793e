package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/librescoot/arduino-mcp-adapter/internal/wire"
)

// EncodeArguments renders arguments (already validated by ValidateArguments)
// into the positional wire payload a Function's manifest-declared
// parameters expect.
func EncodeArguments(f Function, arguments map[string]json.RawMessage) ([]byte, error) {
	enc := wire.NewEncoder()
	for _, p := range f.Params {
		raw, ok := arguments[p.Name]
		if !ok {
			return nil, fmt.Errorf("missing argument %q", p.Name)
		}
		if err := encodeOne(enc, wire.ParamType(p.Type), raw); err != nil {
			return nil, fmt.Errorf("argument %q: %w", p.Name, err)
		}
	}
	return enc.Bytes(), nil
}

func encodeOne(enc *wire.Encoder, t wire.ParamType, raw json.RawMessage) error {
	switch t {
	case wire.TypeI16:
		var v int16
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteI16(v)
	case wire.TypeI32:
		var v int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteI32(v)
	case wire.TypeF32:
		var v float32
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteF32(v)
	case wire.TypeF64:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteF64(v)
	case wire.TypeBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteBool(v)
	case wire.TypeCStr:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteCStr(v)
	default:
		// Unrecognized declared types are conservatively treated as strings,
		// matching jsonTypeFor and the original distinction between known
		// wire types and everything else.
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		enc.WriteCStr(v)
	}
	return nil
}

package typeddata

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/NethermindEth/starkhash/core/crypto"
	"github.com/NethermindEth/starkhash/core/felt"
)

// EncodeType renders root and its dependency closure into the canonical
// encoded type string.
func (td *TypedData) EncodeType(root string) (string, error) {
	if _, ok := td.Types[root]; !ok {
		return "", &ValidationError{TypeName: root, Reason: "unknown type"}
	}

	var sb strings.Builder
	for _, name := range td.dependencies(root) {
		if td.Domain.Revision == RevisionV0 {
			sb.WriteString(name)
			sb.WriteByte('(')
			for i, param := range td.Types[name] {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(param.Name)
				sb.WriteByte(':')
				sb.WriteString(param.Type)
			}
			sb.WriteByte(')')
			continue
		}

		fmt.Fprintf(&sb, "%q(", name)
		for i, param := range td.Types[name] {
			if i > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%q:%q", param.Name, param.Type)
		}
		sb.WriteByte(')')
	}
	return sb.String(), nil
}

const shortStringMaxLen = 31

// GetHex normalises a scalar to a 0x-prefixed hex literal: integers render
// directly, decimal text is parsed, hex text passes through, and any other
// text is read as the big-endian integer formed by its bytes (at most 31 of
// them).
func GetHex(value any) (string, error) {
	switch v := value.(type) {
	case *felt.Felt:
		return v.String(), nil
	case uint64:
		return fmt.Sprintf("0x%x", v), nil
	case int:
		if v < 0 {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "negative value"}
		}
		return fmt.Sprintf("0x%x", v), nil
	case int64:
		if v < 0 {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "negative value"}
		}
		return fmt.Sprintf("0x%x", v), nil
	case float64:
		if v < 0 {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "negative value"}
		}
		if v != math.Trunc(v) {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "not an integer"}
		}
		return fmt.Sprintf("0x%x", uint64(v)), nil
	case json.Number:
		parsed, ok := new(big.Int).SetString(v.String(), 10)
		if !ok || parsed.Sign() < 0 {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "malformed number"}
		}
		return "0x" + parsed.Text(16), nil
	case string:
		if strings.HasPrefix(v, "0x") {
			if _, ok := new(big.Int).SetString(v[2:], 16); !ok {
				return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "malformed hex"}
			}
			return v, nil
		}
		if parsed, ok := new(big.Int).SetString(v, 10); ok {
			if parsed.Sign() < 0 {
				return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "negative value"}
			}
			return "0x" + parsed.Text(16), nil
		}
		if len(v) > shortStringMaxLen {
			return "", &EncodingError{FieldType: "scalar", Value: v, Reason: "short string exceeds 31 bytes"}
		}
		return "0x" + hex.EncodeToString([]byte(v)), nil
	default:
		return "", &EncodingError{FieldType: "scalar", Value: value, Reason: fmt.Sprintf("unsupported value type %T", value)}
	}
}

// encodeValue reduces a single field value to one felt according to its
// declared type.
func (td *TypedData) encodeValue(fieldType string, value any) (*felt.Felt, error) {
	if strings.HasSuffix(fieldType, "*") {
		items, ok := value.([]any)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "expected an array"}
		}
		elemType := strings.TrimSuffix(fieldType, "*")
		elems := make([]*felt.Felt, len(items))
		for i, item := range items {
			elem, err := td.encodeValue(elemType, item)
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return td.hashMany(elems), nil
	}

	if _, ok := td.Types[fieldType]; ok {
		obj, ok := value.(map[string]any)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "expected an object"}
		}
		return td.StructHash(fieldType, obj)
	}

	switch fieldType {
	case "felt", "shortstring", "ContractAddress", "ClassHash":
		return feltFromScalar(fieldType, value)
	case "bool":
		return encodeBool(value)
	case "selector":
		text, ok := value.(string)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "expected a function name"}
		}
		return crypto.StarknetKeccak([]byte(text)), nil
	case "string":
		if td.Domain.Revision == RevisionV0 {
			return feltFromScalar(fieldType, value)
		}
		text, ok := value.(string)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "expected a string"}
		}
		return longStringHash(text), nil
	case "u128", "timestamp":
		return rangeCheckedFelt(fieldType, value, u128Bound)
	case "i128":
		return encodeI128(value)
	case "merkletree":
		return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "merkletree fields are not supported"}
	default:
		return nil, &ValidationError{TypeName: fieldType, Reason: "unknown type"}
	}
}

func feltFromScalar(fieldType string, value any) (*felt.Felt, error) {
	hexValue, err := GetHex(value)
	if err != nil {
		return nil, err
	}
	f, err := new(felt.Felt).SetString(hexValue)
	if err != nil {
		return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: err.Error()}
	}
	return f, nil
}

func encodeBool(value any) (*felt.Felt, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return new(felt.Felt).SetUint64(1), nil
		}
		return new(felt.Felt), nil
	case string:
		switch v {
		case "true", "1":
			return new(felt.Felt).SetUint64(1), nil
		case "false", "0":
			return new(felt.Felt), nil
		}
	case json.Number:
		switch v.String() {
		case "1":
			return new(felt.Felt).SetUint64(1), nil
		case "0":
			return new(felt.Felt), nil
		}
	}
	return nil, &EncodingError{FieldType: "bool", Value: value, Reason: "expected a boolean"}
}

// longStringHash reduces an arbitrary-length string the byte-array way:
// 31-byte big-endian words, then the pending word and its byte length.
func longStringHash(s string) *felt.Felt {
	data := []byte(s)
	fullWords := len(data) / shortStringMaxLen

	elems := make([]*felt.Felt, 0, fullWords+3)
	elems = append(elems, new(felt.Felt).SetUint64(uint64(fullWords)))
	for i := 0; i < fullWords; i++ {
		elems = append(elems, new(felt.Felt).SetBytes(data[i*shortStringMaxLen:(i+1)*shortStringMaxLen]))
	}

	pending := data[fullWords*shortStringMaxLen:]
	elems = append(elems,
		new(felt.Felt).SetBytes(pending),
		new(felt.Felt).SetUint64(uint64(len(pending))),
	)
	return crypto.PoseidonArray(elems...)
}

var (
	u128Bound = new(big.Int).Lsh(big.NewInt(1), 128)
	i128Bound = new(big.Int).Lsh(big.NewInt(1), 127)
)

func rangeCheckedFelt(fieldType string, value any, bound *big.Int) (*felt.Felt, error) {
	parsed, err := bigIntFromScalar(fieldType, value)
	if err != nil {
		return nil, err
	}
	if parsed.Sign() < 0 || parsed.Cmp(bound) >= 0 {
		return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "value out of range"}
	}
	return new(felt.Felt).SetBigInt(parsed), nil
}

func encodeI128(value any) (*felt.Felt, error) {
	parsed, err := bigIntFromScalar("i128", value)
	if err != nil {
		return nil, err
	}
	negBound := new(big.Int).Neg(i128Bound)
	if parsed.Cmp(negBound) < 0 || parsed.Cmp(i128Bound) >= 0 {
		return nil, &EncodingError{FieldType: "i128", Value: value, Reason: "value out of range"}
	}
	return new(felt.Felt).SetBigInt(parsed), nil
}

func bigIntFromScalar(fieldType string, value any) (*big.Int, error) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "not an integer"}
		}
		return big.NewInt(int64(v)), nil
	case json.Number:
		parsed, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "malformed number"}
		}
		return parsed, nil
	case string:
		base := 10
		text := strings.TrimPrefix(v, "0x")
		if text != v {
			base = 16
		}
		parsed, ok := new(big.Int).SetString(text, base)
		if !ok {
			return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: "malformed number"}
		}
		return parsed, nil
	default:
		return nil, &EncodingError{FieldType: fieldType, Value: value, Reason: fmt.Sprintf("unsupported value type %T", value)}
	}
}

// Package starknet holds the boundary types a class declaration travels in
// and the program codec they use on the wire.
package starknet

import (
	"encoding/json"
	"fmt"

	"github.com/NethermindEth/starkhash/core/felt"
	"github.com/NethermindEth/starkhash/utils"
)

type EntryPoint struct {
	Selector *felt.Felt `json:"selector"`
	Offset   *felt.Felt `json:"offset"`
}

type EntryPoints struct {
	Constructor []EntryPoint `json:"CONSTRUCTOR"`
	External    []EntryPoint `json:"EXTERNAL"`
	L1Handler   []EntryPoint `json:"L1_HANDLER"`
}

// DeprecatedCairoClass is a legacy class declaration payload. Program holds
// the raw JSON program object, the wire carries it gzipped and base64'd.
type DeprecatedCairoClass struct {
	Abi         json.RawMessage `json:"abi"`
	EntryPoints EntryPoints     `json:"entry_points_by_type"`
	Program     json.RawMessage `json:"program"`
}

// CompressProgram encodes a program object for the wire: JSON, then gzip,
// then base64.
func CompressProgram(program json.RawMessage) (string, error) {
	compacted, err := compactJSON(program)
	if err != nil {
		return "", fmt.Errorf("compress program: %w", err)
	}
	return utils.Gzip64Encode(compacted)
}

// DecompressProgram reverses CompressProgram. Only round-trip fidelity of the
// decoded program object is guaranteed, not byte-identical compressed output.
func DecompressProgram(data string) (json.RawMessage, error) {
	decompressed, err := utils.Gzip64Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decompress program: %w", err)
	}
	if !json.Valid(decompressed) {
		return nil, fmt.Errorf("decompress program: payload is not valid JSON")
	}
	return json.RawMessage(decompressed), nil
}

func compactJSON(raw json.RawMessage) ([]byte, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return json.Marshal(decoded)
}

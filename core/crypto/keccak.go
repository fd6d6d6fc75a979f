package crypto

import (
	"github.com/NethermindEth/starkhash/core/felt"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	"golang.org/x/crypto/sha3"
)

// StarknetKeccak implements [Starknet keccak]
//
// [Starknet keccak]: https://docs.starknet.io/architecture-and-concepts/cryptography/#starknet_keccak
func StarknetKeccak(b []byte) *felt.Felt {
	h := sha3.NewLegacyKeccak256()
	_, err := h.Write(b)
	if err != nil {
		// the keccak sponge never errors on Write
		panic(err)
	}
	d := h.Sum(nil)
	// Remove the first 6 bits from the first byte to fit the field
	d[0] &= 3
	return felt.NewFelt(new(fp.Element).SetBytes(d))
}

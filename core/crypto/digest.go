package crypto

import "github.com/NethermindEth/starkhash/core/felt"

// Digest incrementally reduces a felt sequence to a single commitment.
type Digest interface {
	Update(...*felt.Felt) Digest
	Finish() *felt.Felt
}

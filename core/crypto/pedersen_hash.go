package crypto

import (
	"github.com/NethermindEth/starkhash/core/felt"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
	pedersenhash "github.com/consensys/gnark-crypto/ecc/stark-curve/pedersen-hash"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PedersenArray implements [Pedersen array hashing].
//
// [Pedersen array hashing]: https://docs.starknet.io/architecture-and-concepts/cryptography/#pedersen_array_hash
func PedersenArray(elems ...*felt.Felt) *felt.Felt {
	var digest PedersenDigest
	return digest.Update(elems...).Finish()
}

const pedersenCacheSize = 1_000_000

type pairKey struct {
	x, y felt.Felt
}

var lruPedersen, _ = lru.New(pedersenCacheSize)

var pedersenCache = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "starkhash_pedersen_cache",
	Help: "pedersen pair cache lookups",
}, []string{"hit"})

// Pedersen implements the [Pedersen hash]. Pairs are memoised; equal inputs
// always produce identical outputs, so the cache never needs invalidation.
//
// [Pedersen hash]: https://docs.starknet.io/architecture-and-concepts/cryptography/#pedersen_hash
func Pedersen(a, b *felt.Felt) *felt.Felt {
	key := pairKey{
		x: *a, y: *b,
	}

	if res, ok := lruPedersen.Get(key); ok {
		pedersenCache.WithLabelValues("true").Inc()
		return res.(*felt.Felt)
	}

	hash := pedersenhash.Pedersen(a.Impl(), b.Impl())
	result := felt.NewFelt(&hash)
	lruPedersen.Add(key, result)
	pedersenCache.WithLabelValues("false").Inc()
	return result
}

var _ Digest = (*PedersenDigest)(nil)

type PedersenDigest struct {
	digest fp.Element
	count  uint64
}

func (d *PedersenDigest) Update(elems ...*felt.Felt) Digest {
	for idx := range elems {
		d.digest = pedersenhash.Pedersen(&d.digest, elems[idx].Impl())
	}
	d.count += uint64(len(elems))
	return d
}

func (d *PedersenDigest) Finish() *felt.Felt {
	d.digest = pedersenhash.Pedersen(&d.digest, new(fp.Element).SetUint64(d.count))
	return felt.NewFelt(&d.digest)
}

package crypto

import (
	"crypto/sha256"
	"math/big"
	"strconv"
	"sync"

	"github.com/NethermindEth/starkhash/core/felt"
	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Poseidon implements the [Poseidon hash].
//
// [Poseidon hash]: https://docs.starknet.io/architecture-and-concepts/cryptography/#poseidon_hash
func Poseidon(x, y *felt.Felt) *felt.Felt {
	state := []felt.Felt{*x, *y, {}}
	state[2].SetUint64(2)
	hadesPermutation(state)
	return new(felt.Felt).Set(&state[0])
}

// PoseidonArray implements [Poseidon array hashing].
//
// [Poseidon array hashing]: https://docs.starknet.io/architecture-and-concepts/cryptography/#poseidon_array_hash
func PoseidonArray(elems ...*felt.Felt) *felt.Felt {
	var digest PoseidonDigest
	return digest.Update(elems...).Finish()
}

var _ Digest = (*PoseidonDigest)(nil)

type PoseidonDigest struct {
	state       [3]felt.Felt
	overflow    felt.Felt
	hasOverflow bool
}

func (d *PoseidonDigest) Update(elems ...*felt.Felt) Digest {
	for idx := range elems {
		if !d.hasOverflow {
			d.overflow.Set(elems[idx])
			d.hasOverflow = true
		} else {
			d.state[0].Add(&d.state[0], &d.overflow)
			d.state[1].Add(&d.state[1], elems[idx])
			hadesPermutation(d.state[:])
			d.hasOverflow = false
		}
	}
	return d
}

func (d *PoseidonDigest) Finish() *felt.Felt {
	one := new(felt.Felt).SetUint64(1)
	if d.hasOverflow {
		d.state[0].Add(&d.state[0], &d.overflow)
		d.state[1].Add(&d.state[1], one)
	} else {
		d.state[0].Add(&d.state[0], one)
	}
	hadesPermutation(d.state[:])
	return new(felt.Felt).Set(&d.state[0])
}

const (
	stateWidth    = 3
	fullRounds    = 8
	partialRounds = 83
	totalRounds   = fullRounds + partialRounds
)

var (
	roundKeys     [totalRounds][stateWidth]fp.Element
	roundKeysOnce sync.Once
)

// setRoundKeys derives the Hades round constants the way the reference
// implementation does: sha256("Hades" + i) reduced into the field.
func setRoundKeys() {
	value := new(big.Int)
	for i := 0; i < totalRounds*stateWidth; i++ {
		digest := sha256.Sum256([]byte("Hades" + strconv.Itoa(i)))
		value.SetBytes(digest[:])
		roundKeys[i/stateWidth][i%stateWidth].SetBigInt(value)
	}
}

func hadesPermutation(state []felt.Felt) {
	roundKeysOnce.Do(setRoundKeys)
	for i := 0; i < totalRounds; i++ {
		fullRound := i < fullRounds/2 || i >= fullRounds/2+partialRounds
		hadesRound(state, fullRound, i)
	}
}

func hadesRound(state []felt.Felt, full bool, index int) {
	// AddRoundConstants
	for i := range state {
		state[i].Impl().Add(state[i].Impl(), &roundKeys[index][i])
	}

	// SubWords: cube the whole state in full rounds, only the last
	// element in partial rounds
	if full {
		for i := range state {
			elem := state[i].Impl()
			var square fp.Element
			square.Square(elem)
			elem.Mul(elem, &square)
		}
	} else {
		elem := state[2].Impl()
		var square fp.Element
		square.Square(elem)
		elem.Mul(elem, &square)
	}

	// MixLayer with M = ((3,1,1), (1,-1,1), (1,1,-2))
	var t fp.Element
	t.Add(state[0].Impl(), state[1].Impl())
	t.Add(&t, state[2].Impl())

	var tmp fp.Element
	tmp.Double(state[0].Impl())
	state[0].Impl().Add(&t, &tmp)

	tmp.Double(state[1].Impl())
	state[1].Impl().Sub(&t, &tmp)

	tmp.Double(state[2].Impl())
	tmp.Add(&tmp, state[2].Impl())
	state[2].Impl().Sub(&t, &tmp)
}

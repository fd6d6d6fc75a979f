package core

import (
	"math/big"

	"github.com/NethermindEth/starkhash/core/crypto"
	"github.com/NethermindEth/starkhash/core/felt"
)

var (
	contractAddressPrefix = new(felt.Felt).SetBytes([]byte("STARKNET_CONTRACT_ADDRESS"))

	// L2 addresses are bounded by 2**251 - 256 rather than the field prime.
	maxAddress = new(big.Int).Sub(
		new(big.Int).Lsh(big.NewInt(1), 251),
		big.NewInt(256),
	)
)

// ContractAddress computes the address of a not-yet-deployed contract.
//
// https://docs.starknet.io/architecture-and-concepts/smart-contracts/contract-address/
func ContractAddress(deployerAddress, salt, classHash *felt.Felt, constructorCallData []*felt.Felt) *felt.Felt {
	callDataHash := crypto.PedersenArray(constructorCallData...)

	address := crypto.PedersenArray(
		contractAddressPrefix,
		deployerAddress,
		salt,
		classHash,
		callDataHash,
	)

	value := address.BigInt(new(big.Int))
	value.Mod(value, maxAddress)
	return address.SetBigInt(value)
}

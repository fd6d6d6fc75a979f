package typeddata

import (
	"github.com/NethermindEth/starkhash/core/crypto"
	"github.com/NethermindEth/starkhash/core/felt"
)

var messagePrefix = new(felt.Felt).SetBytes([]byte("StarkNet Message"))

// TypeHash hashes the encoded type string of name. Results are memoised,
// declarations never change after construction.
func (td *TypedData) TypeHash(name string) (*felt.Felt, error) {
	if cached, ok := td.typeHashes.Load(name); ok {
		return cached.(*felt.Felt), nil
	}

	encoded, err := td.EncodeType(name)
	if err != nil {
		return nil, err
	}
	hash := crypto.StarknetKeccak([]byte(encoded))
	td.typeHashes.Store(name, hash)
	return hash, nil
}

// StructHash hashes value against the declaration of typeName: the type hash
// followed by one felt per field, in declaration order.
func (td *TypedData) StructHash(typeName string, value map[string]any) (*felt.Felt, error) {
	typeHash, err := td.TypeHash(typeName)
	if err != nil {
		return nil, err
	}

	elems := make([]*felt.Felt, 0, len(td.Types[typeName])+1)
	elems = append(elems, typeHash)
	for _, param := range td.Types[typeName] {
		fieldValue, ok := value[param.Name]
		if !ok {
			return nil, &EncodingError{FieldType: param.Type, Value: value, Reason: "missing field " + param.Name}
		}
		encoded, err := td.encodeValue(param.Type, fieldValue)
		if err != nil {
			return nil, err
		}
		elems = append(elems, encoded)
	}
	return td.hashMany(elems), nil
}

// DomainHash hashes the domain against its implicit revision-defined type.
func (td *TypedData) DomainHash() (*felt.Felt, error) {
	return td.StructHash(td.Domain.typeName(), td.Domain.toMap())
}

// MessageHash binds the domain, the signing account and the message into the
// single commitment an account signs.
func (td *TypedData) MessageHash(accountAddress *felt.Felt) (*felt.Felt, error) {
	domainHash, err := td.DomainHash()
	if err != nil {
		return nil, err
	}
	structHash, err := td.StructHash(td.PrimaryType, td.Message)
	if err != nil {
		return nil, err
	}
	return td.hashMany([]*felt.Felt{messagePrefix, domainHash, accountAddress, structHash}), nil
}

func (td *TypedData) hashMany(elems []*felt.Felt) *felt.Felt {
	if td.Domain.Revision == RevisionV0 {
		return crypto.PedersenArray(elems...)
	}
	return crypto.PoseidonArray(elems...)
}

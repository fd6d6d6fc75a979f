package core

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/NethermindEth/starkhash/core/crypto"
	"github.com/NethermindEth/starkhash/core/felt"
)

type TransactionKind uint8

const (
	KindInvoke TransactionKind = iota + 1
	KindDeclare
	KindDeployAccount
)

func (k TransactionKind) String() string {
	switch k {
	case KindInvoke:
		return "INVOKE"
	case KindDeclare:
		return "DECLARE"
	case KindDeployAccount:
		return "DEPLOY_ACCOUNT"
	default:
		return fmt.Sprintf("TransactionKind(%d)", uint8(k))
	}
}

type Resource uint32

const (
	ResourceL1Gas Resource = iota + 1
	ResourceL2Gas
	ResourceL1DataGas
)

func (r *Resource) UnmarshalJSON(data []byte) error {
	return r.UnmarshalText(bytes.Trim(data, `"`))
}

func (r *Resource) UnmarshalText(text []byte) error {
	switch string(text) {
	case "L1_GAS":
		*r = ResourceL1Gas
	case "L1_DATA_GAS":
		*r = ResourceL1DataGas
	case "L2_GAS":
		*r = ResourceL2Gas
	default:
		return fmt.Errorf("unknown resource: %q", string(text))
	}
	return nil
}

func (r Resource) MarshalText() ([]byte, error) {
	switch r {
	case ResourceL1Gas:
		return []byte("L1_GAS"), nil
	case ResourceL1DataGas:
		return []byte("L1_DATA_GAS"), nil
	case ResourceL2Gas:
		return []byte("L2_GAS"), nil
	default:
		return nil, errors.New("unknown resource")
	}
}

type DataAvailabilityMode uint32

const (
	DAModeL1 DataAvailabilityMode = iota
	DAModeL2
)

func (m *DataAvailabilityMode) UnmarshalJSON(data []byte) error {
	return m.UnmarshalText(bytes.Trim(data, `"`))
}

func (m *DataAvailabilityMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "L1":
		*m = DAModeL1
	case "L2":
		*m = DAModeL2
	default:
		return fmt.Errorf("unknown data availability mode: %q", string(text))
	}
	return nil
}

func (m DataAvailabilityMode) MarshalText() ([]byte, error) {
	switch m {
	case DAModeL1:
		return []byte("L1"), nil
	case DAModeL2:
		return []byte("L2"), nil
	default:
		return nil, errors.New("unknown data availability mode")
	}
}

type ResourceBounds struct {
	MaxAmount       *felt.Felt `json:"max_amount"`
	MaxPricePerUnit *felt.Felt `json:"max_price_per_unit"`
}

// TransactionV3Fields holds the fee and data availability fields shared by
// every version 3 transaction.
type TransactionV3Fields struct {
	Tip            *felt.Felt                  `json:"tip"`
	ResourceBounds map[Resource]ResourceBounds `json:"resource_bounds"`
	PaymasterData  []*felt.Felt                `json:"paymaster_data"`
	NonceDAMode    DataAvailabilityMode        `json:"nonce_data_availability_mode"`
	FeeDAMode      DataAvailabilityMode        `json:"fee_data_availability_mode"`
}

// Transaction is the closed set of hashable transaction variants. Each
// variant carries only the fields that enter its own preimage.
type Transaction interface {
	Kind() TransactionKind
	Version() uint64
}

var (
	_ Transaction = (*InvokeV0)(nil)
	_ Transaction = (*InvokeV1)(nil)
	_ Transaction = (*InvokeV3)(nil)
	_ Transaction = (*DeclareV0)(nil)
	_ Transaction = (*DeclareV1)(nil)
	_ Transaction = (*DeclareV2)(nil)
	_ Transaction = (*DeclareV3)(nil)
	_ Transaction = (*DeployAccountV0)(nil)
	_ Transaction = (*DeployAccountV1)(nil)
	_ Transaction = (*DeployAccountV3)(nil)
)

type InvokeV0 struct {
	SenderAddress      *felt.Felt
	EntryPointSelector *felt.Felt
	CallData           []*felt.Felt
	MaxFee             *felt.Felt
}

func (*InvokeV0) Kind() TransactionKind { return KindInvoke }
func (*InvokeV0) Version() uint64       { return 0 }

type InvokeV1 struct {
	SenderAddress *felt.Felt
	CallData      []*felt.Felt
	MaxFee        *felt.Felt
	Nonce         *felt.Felt
}

func (*InvokeV1) Kind() TransactionKind { return KindInvoke }
func (*InvokeV1) Version() uint64       { return 1 }

type InvokeV3 struct {
	TransactionV3Fields
	SenderAddress         *felt.Felt
	CallData              []*felt.Felt
	Nonce                 *felt.Felt
	AccountDeploymentData []*felt.Felt
}

func (*InvokeV3) Kind() TransactionKind { return KindInvoke }
func (*InvokeV3) Version() uint64       { return 3 }

type DeclareV0 struct {
	SenderAddress *felt.Felt
	ClassHash     *felt.Felt
	MaxFee        *felt.Felt
}

func (*DeclareV0) Kind() TransactionKind { return KindDeclare }
func (*DeclareV0) Version() uint64       { return 0 }

type DeclareV1 struct {
	SenderAddress *felt.Felt
	ClassHash     *felt.Felt
	MaxFee        *felt.Felt
	Nonce         *felt.Felt
}

func (*DeclareV1) Kind() TransactionKind { return KindDeclare }
func (*DeclareV1) Version() uint64       { return 1 }

type DeclareV2 struct {
	SenderAddress     *felt.Felt
	ClassHash         *felt.Felt
	CompiledClassHash *felt.Felt
	MaxFee            *felt.Felt
	Nonce             *felt.Felt
}

func (*DeclareV2) Kind() TransactionKind { return KindDeclare }
func (*DeclareV2) Version() uint64       { return 2 }

type DeclareV3 struct {
	TransactionV3Fields
	SenderAddress         *felt.Felt
	ClassHash             *felt.Felt
	CompiledClassHash     *felt.Felt
	Nonce                 *felt.Felt
	AccountDeploymentData []*felt.Felt
}

func (*DeclareV3) Kind() TransactionKind { return KindDeclare }
func (*DeclareV3) Version() uint64       { return 3 }

type DeployAccountV0 struct {
	ClassHash           *felt.Felt
	ContractAddressSalt *felt.Felt
	ConstructorCallData []*felt.Felt
	MaxFee              *felt.Felt
	Nonce               *felt.Felt
}

func (*DeployAccountV0) Kind() TransactionKind { return KindDeployAccount }
func (*DeployAccountV0) Version() uint64       { return 0 }

type DeployAccountV1 struct {
	ClassHash           *felt.Felt
	ContractAddressSalt *felt.Felt
	ConstructorCallData []*felt.Felt
	MaxFee              *felt.Felt
	Nonce               *felt.Felt
}

func (*DeployAccountV1) Kind() TransactionKind { return KindDeployAccount }
func (*DeployAccountV1) Version() uint64       { return 1 }

type DeployAccountV3 struct {
	TransactionV3Fields
	ClassHash           *felt.Felt
	ContractAddressSalt *felt.Felt
	ConstructorCallData []*felt.Felt
	Nonce               *felt.Felt
}

func (*DeployAccountV3) Kind() TransactionKind { return KindDeployAccount }
func (*DeployAccountV3) Version() uint64       { return 3 }

var (
	ErrUnsupportedVariant      = errors.New("unsupported transaction variant")
	ErrMalformedResourceBounds = errors.New("malformed resource bounds")

	invokeFelt        = new(felt.Felt).SetBytes([]byte("invoke"))
	declareFelt       = new(felt.Felt).SetBytes([]byte("declare"))
	deployAccountFelt = new(felt.Felt).SetBytes([]byte("deploy_account"))
)

type variantKey struct {
	kind    TransactionKind
	version uint64
}

type preimageRule func(tx Transaction, chainID *felt.Felt) (*felt.Felt, error)

var preimageRules = map[variantKey]preimageRule{
	{KindInvoke, 0}:        invokeV0Hash,
	{KindInvoke, 1}:        invokeV1Hash,
	{KindInvoke, 3}:        invokeV3Hash,
	{KindDeclare, 0}:       declareV0Hash,
	{KindDeclare, 1}:       declareV1Hash,
	{KindDeclare, 2}:       declareV2Hash,
	{KindDeclare, 3}:       declareV3Hash,
	{KindDeployAccount, 0}: deployAccountV0Hash,
	{KindDeployAccount, 1}: deployAccountV1Hash,
	{KindDeployAccount, 3}: deployAccountV3Hash,
}

// TransactionHash computes the commitment of tx on the network identified by
// chainID.
func TransactionHash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	rule, ok := preimageRules[variantKey{tx.Kind(), tx.Version()}]
	if !ok {
		return nil, fmt.Errorf("%w: %v version %d", ErrUnsupportedVariant, tx.Kind(), tx.Version())
	}
	return rule(tx, chainID)
}

func invokeV0Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*InvokeV0)
	return crypto.PedersenArray(
		invokeFelt,
		&felt.Zero,
		t.SenderAddress,
		t.EntryPointSelector,
		crypto.PedersenArray(t.CallData...),
		t.MaxFee,
		chainID,
	), nil
}

func invokeV1Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*InvokeV1)
	return crypto.PedersenArray(
		invokeFelt,
		new(felt.Felt).SetUint64(1),
		t.SenderAddress,
		&felt.Zero,
		crypto.PedersenArray(t.CallData...),
		t.MaxFee,
		chainID,
		t.Nonce,
	), nil
}

func invokeV3Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*InvokeV3)
	common, err := v3CommonPreimage(invokeFelt, t.SenderAddress, t.Nonce, &t.TransactionV3Fields, chainID)
	if err != nil {
		return nil, err
	}
	return crypto.PoseidonArray(append(common,
		crypto.PoseidonArray(t.AccountDeploymentData...),
		crypto.PoseidonArray(t.CallData...),
	)...), nil
}

func declareV0Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeclareV0)
	return crypto.PedersenArray(
		declareFelt,
		&felt.Zero,
		t.SenderAddress,
		&felt.Zero,
		crypto.PedersenArray(),
		t.MaxFee,
		chainID,
		t.ClassHash,
	), nil
}

func declareV1Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeclareV1)
	return crypto.PedersenArray(
		declareFelt,
		new(felt.Felt).SetUint64(1),
		t.SenderAddress,
		&felt.Zero,
		crypto.PedersenArray(t.ClassHash),
		t.MaxFee,
		chainID,
		t.Nonce,
	), nil
}

func declareV2Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeclareV2)
	return crypto.PedersenArray(
		declareFelt,
		new(felt.Felt).SetUint64(2),
		t.SenderAddress,
		&felt.Zero,
		crypto.PedersenArray(t.ClassHash),
		t.MaxFee,
		chainID,
		t.Nonce,
		t.CompiledClassHash,
	), nil
}

func declareV3Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeclareV3)
	common, err := v3CommonPreimage(declareFelt, t.SenderAddress, t.Nonce, &t.TransactionV3Fields, chainID)
	if err != nil {
		return nil, err
	}
	return crypto.PoseidonArray(append(common,
		crypto.PoseidonArray(t.AccountDeploymentData...),
		t.ClassHash,
		t.CompiledClassHash,
	)...), nil
}

func deployAccountV0Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeployAccountV0)
	return deployAccountLegacyHash(&felt.Zero, t.ClassHash, t.ContractAddressSalt,
		t.ConstructorCallData, t.MaxFee, t.Nonce, chainID), nil
}

func deployAccountV1Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeployAccountV1)
	return deployAccountLegacyHash(new(felt.Felt).SetUint64(1), t.ClassHash, t.ContractAddressSalt,
		t.ConstructorCallData, t.MaxFee, t.Nonce, chainID), nil
}

func deployAccountLegacyHash(version, classHash, salt *felt.Felt,
	constructorCallData []*felt.Felt, maxFee, nonce, chainID *felt.Felt,
) *felt.Felt {
	// The account contract does not exist yet, its address is derived from
	// the deployment fields with the zero deployer.
	address := ContractAddress(&felt.Zero, salt, classHash, constructorCallData)

	callData := make([]*felt.Felt, 0, len(constructorCallData)+2)
	callData = append(callData, classHash, salt)
	callData = append(callData, constructorCallData...)
	return crypto.PedersenArray(
		deployAccountFelt,
		version,
		address,
		&felt.Zero,
		crypto.PedersenArray(callData...),
		maxFee,
		chainID,
		nonce,
	)
}

func deployAccountV3Hash(tx Transaction, chainID *felt.Felt) (*felt.Felt, error) {
	t := tx.(*DeployAccountV3)
	address := ContractAddress(&felt.Zero, t.ContractAddressSalt, t.ClassHash, t.ConstructorCallData)
	common, err := v3CommonPreimage(deployAccountFelt, address, t.Nonce, &t.TransactionV3Fields, chainID)
	if err != nil {
		return nil, err
	}
	return crypto.PoseidonArray(append(common,
		crypto.PoseidonArray(t.ConstructorCallData...),
		t.ClassHash,
		t.ContractAddressSalt,
	)...), nil
}

func v3CommonPreimage(prefix, address, nonce *felt.Felt,
	fields *TransactionV3Fields, chainID *felt.Felt,
) ([]*felt.Felt, error) {
	feeHash, err := tipAndResourceBoundsHash(fields)
	if err != nil {
		return nil, err
	}
	return []*felt.Felt{
		prefix,
		new(felt.Felt).SetUint64(3),
		address,
		feeHash,
		crypto.PoseidonArray(fields.PaymasterData...),
		chainID,
		nonce,
		daModesFelt(fields.NonceDAMode, fields.FeeDAMode),
	}, nil
}

func tipAndResourceBoundsHash(fields *TransactionV3Fields) (*felt.Felt, error) {
	l1Bounds, err := packResourceBounds(ResourceL1Gas, fields.ResourceBounds)
	if err != nil {
		return nil, err
	}
	l2Bounds, err := packResourceBounds(ResourceL2Gas, fields.ResourceBounds)
	if err != nil {
		return nil, err
	}
	return crypto.PoseidonArray(fields.Tip, l1Bounds, l2Bounds), nil
}

// packResourceBounds lays out a resource name and its bounds in one felt:
// name<<192 | maxAmount<<128 | maxPricePerUnit.
func packResourceBounds(resource Resource, bounds map[Resource]ResourceBounds) (*felt.Felt, error) {
	name, err := resource.MarshalText()
	if err != nil {
		return nil, err
	}

	rb, ok := bounds[resource]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResourceBounds, name)
	}

	amount := rb.MaxAmount.BigInt(new(big.Int))
	if amount.BitLen() > 64 {
		return nil, fmt.Errorf("%w: %s max amount exceeds 64 bits", ErrMalformedResourceBounds, name)
	}
	price := rb.MaxPricePerUnit.BigInt(new(big.Int))
	if price.BitLen() > 128 {
		return nil, fmt.Errorf("%w: %s max price exceeds 128 bits", ErrMalformedResourceBounds, name)
	}

	value := new(big.Int).SetBytes(name)
	value.Lsh(value, 192)
	value.Or(value, amount.Lsh(amount, 128))
	value.Or(value, price)
	return new(felt.Felt).SetBigInt(value), nil
}

func daModesFelt(nonceMode, feeMode DataAvailabilityMode) *felt.Felt {
	packed := uint64(nonceMode)<<32 | uint64(feeMode)
	return new(felt.Felt).SetUint64(packed)
}

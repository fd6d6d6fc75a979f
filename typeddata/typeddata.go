// Package typeddata implements canonical hashing of structured off-chain
// messages (SNIP-12): a validated type graph is rendered into an encoded type
// string, hashed into a type hash, and values are hashed recursively against
// their declarations into struct and message commitments.
package typeddata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/NethermindEth/starkhash/validator"
)

type Revision uint64

const (
	RevisionV0 Revision = iota
	RevisionV1
)

func (r *Revision) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "0":
		*r = RevisionV0
	case "1":
		*r = RevisionV1
	default:
		return fmt.Errorf("unknown revision: %s", string(data))
	}
	return nil
}

func (r Revision) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%d"`, uint64(r))), nil
}

// Parameter is a single field declaration inside a type.
type Parameter struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required"`
}

// Domain identifies the application a message is bound to. Revision selects
// the encoding rules used everywhere else.
type Domain struct {
	Name     string
	Version  string
	ChainID  string
	Revision Revision
}

// UnmarshalJSON accepts both string and numeric values for the name, version
// and chainId fields; an absent revision means revision 0.
func (d *Domain) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     json.RawMessage `json:"name"`
		Version  json.RawMessage `json:"version"`
		ChainID  json.RawMessage `json:"chainId"`
		Revision *Revision       `json:"revision"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Name = scalarText(raw.Name)
	d.Version = scalarText(raw.Version)
	d.ChainID = scalarText(raw.ChainID)
	if raw.Revision != nil {
		d.Revision = *raw.Revision
	}
	return nil
}

func (d *Domain) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"name":    d.Name,
		"version": d.Version,
		"chainId": d.ChainID,
	}
	if d.Revision != RevisionV0 {
		fields["revision"] = d.Revision
	}
	return json.Marshal(fields)
}

func scalarText(raw json.RawMessage) string {
	return string(bytes.Trim(raw, `"`))
}

// typeName returns the implicit name of the domain's own type.
func (d *Domain) typeName() string {
	if d.Revision == RevisionV0 {
		return "StarkNetDomain"
	}
	return "StarknetDomain"
}

// toMap renders the domain as a message value hashable against its implicit
// type.
func (d *Domain) toMap() map[string]any {
	fields := map[string]any{
		"name":    d.Name,
		"version": d.Version,
		"chainId": d.ChainID,
	}
	if d.Revision != RevisionV0 {
		fields["revision"] = json.Number(fmt.Sprintf("%d", uint64(d.Revision)))
	}
	return fields
}

// TypedData is a validated structured message ready for hashing. Values are
// immutable after construction, hashing never mutates them.
type TypedData struct {
	Types       map[string][]Parameter `json:"types" validate:"required,dive,dive"`
	PrimaryType string                 `json:"primaryType" validate:"required"`
	Domain      Domain                 `json:"domain"`
	Message     map[string]any         `json:"message" validate:"required"`

	typeHashes sync.Map
}

// New validates the declarations and returns a hashable TypedData. The
// revision-appropriate domain type is injected when the declarations omit it.
func New(types map[string][]Parameter, primaryType string, domain Domain, message map[string]any) (*TypedData, error) {
	declarations := make(map[string][]Parameter, len(types)+1)
	for name, params := range types {
		declarations[name] = params
	}

	td := &TypedData{
		Types:       declarations,
		PrimaryType: primaryType,
		Domain:      domain,
		Message:     message,
	}
	td.injectDomainType()
	if err := td.verifyTypes(); err != nil {
		return nil, err
	}
	return td, nil
}

// FromJSON decodes the external TypedData shape and runs full validation
// before anything is hashed.
func FromJSON(data []byte) (*TypedData, error) {
	td := new(TypedData)

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(td); err != nil {
		return nil, err
	}
	if err := validator.Validator().Struct(td); err != nil {
		return nil, err
	}

	td.injectDomainType()
	if err := td.verifyTypes(); err != nil {
		return nil, err
	}
	return td, nil
}

func (td *TypedData) injectDomainType() {
	domainType := td.Domain.typeName()
	if _, ok := td.Types[domainType]; ok {
		return
	}
	if td.Domain.Revision == RevisionV0 {
		td.Types[domainType] = []Parameter{
			{Name: "name", Type: "felt"},
			{Name: "version", Type: "felt"},
			{Name: "chainId", Type: "felt"},
		}
		return
	}
	td.Types[domainType] = []Parameter{
		{Name: "name", Type: "shortstring"},
		{Name: "version", Type: "shortstring"},
		{Name: "chainId", Type: "shortstring"},
		{Name: "revision", Type: "shortstring"},
	}
}

func (td *TypedData) verifyTypes() error {
	for name := range td.Types {
		if isBasicType(name, td.Domain.Revision) {
			return &ValidationError{TypeName: name, Reason: "reserved type name"}
		}
		if strings.Contains(name, "*") {
			return &ValidationError{TypeName: name, Reason: "type names must not contain the array marker"}
		}
	}

	for name, params := range td.Types {
		for _, param := range params {
			ref := strings.TrimSuffix(param.Type, "*")
			if isBasicType(ref, td.Domain.Revision) {
				continue
			}
			if _, ok := td.Types[ref]; !ok {
				return &ValidationError{
					TypeName: ref,
					Reason:   fmt.Sprintf("unknown type referenced by %s.%s", name, param.Name),
				}
			}
		}
	}

	if _, ok := td.Types[td.PrimaryType]; !ok {
		return &ValidationError{TypeName: td.PrimaryType, Reason: "primary type is not declared"}
	}

	return td.rejectCycles()
}

// rejectCycles walks every declaration with explicit visited-state tracking,
// so a recursive type graph cannot recurse unboundedly at hash time.
func (td *TypedData) rejectCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(td.Types))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visiting:
			return &ValidationError{TypeName: name, Reason: "recursive type"}
		case done:
			return nil
		}
		state[name] = visiting
		for _, param := range td.Types[name] {
			ref := strings.TrimSuffix(param.Type, "*")
			if _, ok := td.Types[ref]; !ok {
				continue
			}
			if err := visit(ref); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range td.Types {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// dependencies returns the closure of root in visitation order: depth-first
// over field declarations in declaration order, root first, each type
// recorded once.
func (td *TypedData) dependencies(root string) []string {
	order := make([]string, 0, len(td.Types))
	visited := make(map[string]bool, len(td.Types))

	var visit func(name string)
	visit = func(name string) {
		visited[name] = true
		order = append(order, name)
		for _, param := range td.Types[name] {
			ref := strings.TrimSuffix(param.Type, "*")
			if _, ok := td.Types[ref]; ok && !visited[ref] {
				visit(ref)
			}
		}
	}
	visit(root)
	return order
}

var basicTypesV0 = map[string]struct{}{
	"felt":        {},
	"bool":        {},
	"string":      {},
	"selector":    {},
	"shortstring": {},
	"merkletree":  {},
}

var basicTypesV1 = map[string]struct{}{
	"felt":            {},
	"bool":            {},
	"string":          {},
	"selector":        {},
	"shortstring":     {},
	"merkletree":      {},
	"u128":            {},
	"i128":            {},
	"ContractAddress": {},
	"ClassHash":       {},
	"timestamp":       {},
}

func isBasicType(name string, revision Revision) bool {
	types := basicTypesV0
	if revision == RevisionV1 {
		types = basicTypesV1
	}
	_, ok := types[name]
	return ok
}

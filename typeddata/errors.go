package typeddata

import "fmt"

// ValidationError reports an invalid type declaration. All declarations are
// checked before any hashing starts.
type ValidationError struct {
	TypeName string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid type %q: %s", e.TypeName, e.Reason)
}

// EncodingError reports a value that cannot be encoded against its declared
// field type.
type EncodingError struct {
	FieldType string
	Value     any
	Reason    string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %v as %s: %s", e.Value, e.FieldType, e.Reason)
}

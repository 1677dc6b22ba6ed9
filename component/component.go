// Package component describes what gets signed for an outgoing request:
// the component identifiers and the immutable SignatureComponents value
// they are resolved against.
package component

import (
	"bytes"
	"fmt"

	"github.com/lestrrat-go/sfv"
)

// Derived component names.
const (
	MethodName    = "@method"
	TargetURIName = "@target-uri"
)

// Header field component names covered when present.
const (
	AuthorizationName = "authorization"
	ContentDigestName = "content-digest"
	ContentTypeName   = "content-type"
	ContentLengthName = "content-length"
)

// SignatureParamsName is the name of the trailing line of a signature base.
const SignatureParamsName = "@signature-params"

var (
	derivedMethod    = New(MethodName)
	derivedTargetURI = New(TargetURIName)
)

func Method() Identifier {
	return derivedMethod
}

func TargetURI() Identifier {
	return derivedTargetURI
}

// Identifier represents an HTTP Message Signature component identifier.
type Identifier struct {
	name string // Component name (e.g., "@method", "content-type")
}

// New creates a new Identifier with the given name
func New(name string) Identifier {
	return Identifier{name: name}
}

func (c Identifier) Name() string {
	return c.name
}

// IsDerived reports whether the identifier names a derived component
// rather than a header field.
func (c Identifier) IsDerived() bool {
	return len(c.name) > 0 && c.name[0] == '@'
}

func (c Identifier) SFV() sfv.Item {
	return sfv.String(c.name)
}

// MarshalSFV returns the quoted form of the identifier, as it appears at the
// start of a signature base line.
func (c Identifier) MarshalSFV() ([]byte, error) {
	var buf bytes.Buffer
	enc := sfv.NewEncoder(&buf)
	enc.SetParameterSpacing("")
	if err := enc.Encode(c.SFV()); err != nil {
		return nil, fmt.Errorf("failed to encode SFV: %w", err)
	}
	return buf.Bytes(), nil
}

// Names returns the names of ids, in order.
func Names(ids []Identifier) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.name
	}
	return names
}

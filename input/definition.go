// Package input models the signature parameters of a single signature:
// the covered components plus created, keyid, alg and nonce. A Definition
// renders both the Signature-Input header value and the inner list used on
// the "@signature-params" line of the signature base.
package input

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/boniface/opsig/component"
	"github.com/lestrrat-go/sfv"
)

// DefaultLabel is the signature label used when none is given.
const DefaultLabel = "sig"

// Definition represents the parameters of one signature.
// A Definition must contain:
//   - a label (the signature label)
//   - a list of components (the signature components)
//   - a key ID (the identifier for the key material used to sign)
//   - an algorithm (the algorithm used to sign)
//
// created and nonce are optional here, but the signing engine always sets
// both.
type Definition struct {
	label      string
	components []component.Identifier
	keyid      string
	algorithm  string

	created *int64
	nonce   *string
}

// DefinitionBuilder helps build Definition objects
type DefinitionBuilder struct {
	def *Definition
}

// NewDefinitionBuilder creates a new DefinitionBuilder
func NewDefinitionBuilder() *DefinitionBuilder {
	return &DefinitionBuilder{
		def: &Definition{label: DefaultLabel},
	}
}

// Label sets the signature label
func (b *DefinitionBuilder) Label(label string) *DefinitionBuilder {
	b.def.label = label
	return b
}

// Components sets the covered components
func (b *DefinitionBuilder) Components(components ...component.Identifier) *DefinitionBuilder {
	b.def.components = slices.Clone(components)
	return b
}

// KeyID sets the key identifier
func (b *DefinitionBuilder) KeyID(keyid string) *DefinitionBuilder {
	b.def.keyid = keyid
	return b
}

// Algorithm sets the signature algorithm
func (b *DefinitionBuilder) Algorithm(algorithm string) *DefinitionBuilder {
	b.def.algorithm = algorithm
	return b
}

// Created sets the created timestamp
func (b *DefinitionBuilder) Created(timestamp int64) *DefinitionBuilder {
	b.def.created = &timestamp
	return b
}

// CreatedTime sets the created timestamp from a time.Time
func (b *DefinitionBuilder) CreatedTime(t time.Time) *DefinitionBuilder {
	return b.Created(t.Unix())
}

// Nonce sets the nonce parameter
func (b *DefinitionBuilder) Nonce(nonce string) *DefinitionBuilder {
	b.def.nonce = &nonce
	return b
}

// Build creates the Definition with validation
func (b *DefinitionBuilder) Build() (*Definition, error) {
	if b.def.label == "" {
		return nil, fmt.Errorf("label is required")
	}
	if len(b.def.components) == 0 {
		return nil, fmt.Errorf("at least one component is required")
	}
	if b.def.keyid == "" {
		return nil, fmt.Errorf("keyid is required")
	}
	if b.def.algorithm == "" {
		return nil, fmt.Errorf("algorithm is required")
	}

	def := *b.def
	def.components = slices.Clone(b.def.components)
	return &def, nil
}

// MustBuild creates the Definition and panics if validation fails
func (b *DefinitionBuilder) MustBuild() *Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// Label returns the signature label
func (d *Definition) Label() string {
	return d.label
}

// Components returns the list of covered components
func (d *Definition) Components() []component.Identifier {
	return slices.Clone(d.components)
}

// KeyID returns the key identifier
func (d *Definition) KeyID() string {
	return d.keyid
}

// Algorithm returns the signature algorithm
func (d *Definition) Algorithm() string {
	return d.algorithm
}

// Created returns the created timestamp
func (d *Definition) Created() (int64, bool) {
	if d.created == nil {
		return 0, false
	}
	return *d.created, true
}

// CreatedTime returns the created timestamp as a time.Time
func (d *Definition) CreatedTime() (time.Time, bool) {
	timestamp, ok := d.Created()
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(timestamp, 0), true
}

// Nonce returns the nonce parameter
func (d *Definition) Nonce() (string, bool) {
	if d.nonce == nil {
		return "", false
	}
	return *d.nonce, true
}

// MarshalSFV encodes the definition as an inner list: the quoted component
// identifiers followed by created, keyid, alg and nonce, in that order, with
// no spaces between parameters.
func (d *Definition) MarshalSFV() ([]byte, error) {
	builder := sfv.NewInnerListBuilder()
	for _, comp := range d.components {
		builder.Add(comp.SFV())
	}

	if created, ok := d.Created(); ok {
		builder.Parameter("created", sfv.BareInteger(created))
	}
	if d.keyid != "" {
		builder.Parameter("keyid", sfv.BareString(d.keyid))
	}
	if d.algorithm != "" {
		builder.Parameter("alg", sfv.BareString(d.algorithm))
	}
	if nonce, ok := d.Nonce(); ok {
		builder.Parameter("nonce", sfv.BareString(nonce))
	}

	innerList, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build inner list: %w", err)
	}

	var buf bytes.Buffer
	enc := sfv.NewEncoder(&buf)
	enc.SetParameterSpacing("")
	if err := enc.Encode(innerList); err != nil {
		return nil, fmt.Errorf("failed to encode inner list: %w", err)
	}
	return buf.Bytes(), nil
}

// SignatureInput returns the Signature-Input header value, "<label>=<inner list>".
func (d *Definition) SignatureInput() (string, error) {
	encoded, err := d.MarshalSFV()
	if err != nil {
		return "", err
	}
	return d.label + "=" + string(encoded), nil
}

// Package opsig signs outgoing HTTP requests with RFC 9421 HTTP Message
// Signatures using Ed25519, and validates such signatures.
//
// An Engine is built once from a KeyMaterial and is safe for concurrent
// use. Each call to Sign draws a fresh nonce and created timestamp, so two
// signatures over the same components differ but both validate.
package opsig

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/component"
	"github.com/boniface/opsig/input"
	"github.com/boniface/opsig/sigbase"
	"github.com/google/uuid"
	"github.com/lestrrat-go/blackmagic"
	"github.com/lestrrat-go/jwx/v3/jws/jwsbb"
	"github.com/lestrrat-go/sfv"
)

// Header names, in the lower-case form used as map keys.
const (
	SignatureInputHeader = "signature-input"
	SignatureHeader      = "signature"
)

// Engine produces and validates signatures for one key.
type Engine struct {
	key   *KeyMaterial
	clock clock.Clock
	nonce func() string
	label string
}

// NewEngine creates an Engine signing with key.
func NewEngine(key *KeyMaterial, options ...EngineOption) (*Engine, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: key material is required", ErrInvalidArgument)
	}

	e := &Engine{
		key:   key,
		clock: clock.SystemClock{},
		nonce: uuid.NewString,
		label: input.DefaultLabel,
	}

	for _, opt := range options {
		switch opt.Ident() {
		case identClock{}:
			if err := blackmagic.AssignIfCompatible(&e.clock, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign clock: %w", err)
			}
		case identNonceGenerator{}:
			if err := blackmagic.AssignIfCompatible(&e.nonce, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign nonce generator: %w", err)
			}
		case identLabel{}:
			if err := blackmagic.AssignIfCompatible(&e.label, opt.Value()); err != nil {
				return nil, fmt.Errorf("failed to assign label: %w", err)
			}
		}
	}

	if e.clock == nil || e.nonce == nil {
		return nil, fmt.Errorf("%w: clock and nonce generator must not be nil", ErrInvalidArgument)
	}
	if e.label == "" {
		return nil, fmt.Errorf("%w: label must not be empty", ErrInvalidArgument)
	}
	return e, nil
}

// KeyID returns the identifier of the signing key.
func (e *Engine) KeyID() string {
	return e.key.KeyID()
}

// Verifier returns a Verifier for this engine's public key.
func (e *Engine) Verifier() *Verifier {
	return &Verifier{
		keyID:     e.key.KeyID(),
		publicKey: e.key.PublicKey(),
	}
}

// Signature is the result of one signing call.
type Signature struct {
	params *input.Definition
	input  string
	header string
	value  string
}

// Parameters returns the parameters that were signed, including the
// created timestamp and nonce needed to validate the signature later.
func (s *Signature) Parameters() *input.Definition {
	return s.params
}

// Value returns the base64 encoded signature.
func (s *Signature) Value() string {
	return s.value
}

// Headers returns the signature-input and signature header values.
func (s *Signature) Headers() map[string]string {
	return map[string]string{
		SignatureInputHeader: s.input,
		SignatureHeader:      s.header,
	}
}

// Sign signs the components with a fresh nonce and created timestamp.
func (e *Engine) Sign(c *component.SignatureComponents) (*Signature, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: signature components are required", ErrInvalidArgument)
	}

	def, err := input.NewDefinitionBuilder().
		Label(e.label).
		Components(c.Identifiers()...).
		KeyID(e.key.KeyID()).
		Algorithm(AlgorithmEd25519).
		CreatedTime(e.clock.Now()).
		Nonce(e.nonce()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build signature parameters: %w", err)
	}

	base, err := sigbase.Build(c, def)
	if err != nil {
		return nil, fmt.Errorf("failed to build signature base: %w", err)
	}

	raw, err := jwsbb.Sign(e.key.privateKey, jwsAlgorithm, base, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignature, err)
	}

	sigInput, err := def.SignatureInput()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature input: %w", err)
	}

	dict := sfv.NewDictionary()
	if err := dict.Set(def.Label(), sfv.ByteSequence(raw)); err != nil {
		return nil, fmt.Errorf("failed to set signature in dictionary: %w", err)
	}
	var sb strings.Builder
	if err := sfv.NewEncoder(&sb).Encode(dict); err != nil {
		return nil, fmt.Errorf("failed to encode signature dictionary: %w", err)
	}

	return &Signature{
		params: def,
		input:  sigInput,
		header: sb.String(),
		value:  base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// CreateSignatureHeaders signs the components and returns the
// signature-input and signature header values.
func (e *Engine) CreateSignatureHeaders(c *component.SignatureComponents) (map[string]string, error) {
	sig, err := e.Sign(c)
	if err != nil {
		return nil, err
	}
	return sig.Headers(), nil
}

// Validate reports whether signature, a base64 value, is a valid signature
// by this engine's key over c. params supplies the label, created and nonce
// used at signing time; the covered components are derived from c again.
//
// Only malformed base64 and missing arguments are reported as errors. Any
// other failure, including a signature by a different key, yields false.
func (e *Engine) Validate(c *component.SignatureComponents, signature string, params *input.Definition) (bool, error) {
	return validate(e.key.KeyID(), e.key.PublicKey(), c, signature, params)
}

// Validate reports whether signature is valid for c under the verifier's
// key. It behaves like Engine.Validate.
func (v *Verifier) Validate(c *component.SignatureComponents, signature string, params *input.Definition) (bool, error) {
	return validate(v.keyID, v.publicKey, c, signature, params)
}

func validate(keyID string, key ed25519.PublicKey, c *component.SignatureComponents, signature string, params *input.Definition) (bool, error) {
	if c == nil {
		return false, fmt.Errorf("%w: signature components are required", ErrInvalidArgument)
	}
	if params == nil {
		return false, fmt.Errorf("%w: signature parameters are required", ErrInvalidArgument)
	}

	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrSignatureEncoding, err)
	}

	builder := input.NewDefinitionBuilder().
		Label(params.Label()).
		Components(c.Identifiers()...).
		KeyID(keyID).
		Algorithm(AlgorithmEd25519)
	if created, ok := params.Created(); ok {
		builder.Created(created)
	}
	if nonce, ok := params.Nonce(); ok {
		builder.Nonce(nonce)
	}
	def, err := builder.Build()
	if err != nil {
		return false, nil
	}

	base, err := sigbase.Build(c, def)
	if err != nil {
		return false, nil
	}

	return jwsbb.Verify(key, jwsAlgorithm, base, raw) == nil, nil
}

// ParseSignatureHeader extracts the base64 signature stored under the
// default label from a signature header value such as `sig=:<base64>:`.
func ParseSignatureHeader(value string) (string, error) {
	return ParseLabeledSignatureHeader(value, input.DefaultLabel)
}

// ParseLabeledSignatureHeader is ParseSignatureHeader for an explicit label.
func ParseLabeledSignatureHeader(value, label string) (string, error) {
	dict, err := sfv.ParseDictionary([]byte(value))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse signature header: %w", ErrInvalidArgument, err)
	}

	var entry any
	if err := dict.GetValue(label, &entry); err != nil {
		return "", fmt.Errorf("%w: signature label %q not found: %w", ErrInvalidArgument, label, err)
	}

	var raw []byte
	switch v := entry.(type) {
	case sfv.BareItem:
		if v.Type() != sfv.ByteSequenceType {
			return "", fmt.Errorf("%w: signature for label %q must be a byte sequence", ErrInvalidArgument, label)
		}
		if err := v.GetValue(&raw); err != nil {
			return "", fmt.Errorf("failed to extract signature bytes for label %q: %w", label, err)
		}
	case sfv.Item:
		if err := v.GetValue(&raw); err != nil {
			return "", fmt.Errorf("failed to extract signature bytes for label %q: %w", label, err)
		}
	default:
		return "", fmt.Errorf("%w: unexpected signature entry %T for label %q", ErrInvalidArgument, entry, label)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

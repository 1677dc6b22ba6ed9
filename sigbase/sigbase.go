// Package sigbase builds the canonical signature base that is fed to the
// signing and verification primitives.
package sigbase

import (
	"fmt"
	"strings"

	"github.com/boniface/opsig/component"
	"github.com/boniface/opsig/input"
)

// Resolver returns the value of a covered component.
// *component.SignatureComponents implements it.
type Resolver interface {
	Resolve(component.Identifier) (string, error)
}

// Build constructs the signature base: one `"<id>": <value>` line per
// covered component of def, in order, followed by the "@signature-params"
// line carrying def itself. There is no trailing newline.
func Build(r Resolver, def *input.Definition) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("component resolver is required")
	}
	if def == nil {
		return nil, fmt.Errorf("signature definition is required")
	}

	var output strings.Builder
	seen := make(map[string]struct{})

	for _, comp := range def.Components() {
		encoded, err := comp.MarshalSFV()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal component %q: %w", comp.Name(), err)
		}
		key := string(encoded)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("duplicate component identifier: %s", key)
		}
		seen[key] = struct{}{}

		value, err := r.Resolve(comp)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve component %q: %w", comp.Name(), err)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("component %q contains a line break", comp.Name())
		}

		output.Write(encoded)
		output.WriteString(": ")
		output.WriteString(value)
		output.WriteByte('\n')
	}

	params, err := def.MarshalSFV()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature parameters: %w", err)
	}
	output.WriteString(`"` + component.SignatureParamsName + `": `)
	output.Write(params)

	result := output.String()
	for _, ch := range result {
		if ch > 127 {
			return nil, fmt.Errorf("signature base contains non-ASCII character: %c", ch)
		}
	}
	return []byte(result), nil
}

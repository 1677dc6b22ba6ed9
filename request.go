package opsig

import (
	"fmt"
	"net/http"

	"github.com/boniface/opsig/component"
)

// SignRequest signs req and sets the Signature-Input and Signature headers
// on it. Any Content-Digest and Authorization headers must already be set
// for them to be covered.
func (e *Engine) SignRequest(req *http.Request) (*Signature, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: HTTP request is required", ErrInvalidArgument)
	}

	c, err := component.FromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to capture request components: %w", err)
	}

	sig, err := e.Sign(c)
	if err != nil {
		return nil, err
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for name, value := range sig.Headers() {
		req.Header.Set(name, value)
	}
	return sig, nil
}

package component

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strconv"
	"strings"
)

// ErrComponentNotFound is returned when a covered component has no value.
var ErrComponentNotFound = errors.New("component: value not found")

// SignatureComponents is the immutable description of a request to be
// signed. Header names are compared case-insensitively.
type SignatureComponents struct {
	method    string
	targetURI string
	headers   map[string]string
	body      *string
}

// Builder helps build SignatureComponents objects
type Builder struct {
	method    string
	targetURI string
	headers   map[string]string
	body      *string
}

// NewBuilder creates a new Builder
func NewBuilder() *Builder {
	return &Builder{headers: make(map[string]string)}
}

// Method sets the request method
func (b *Builder) Method(method string) *Builder {
	b.method = method
	return b
}

// TargetURI sets the full target URI
func (b *Builder) TargetURI(uri string) *Builder {
	b.targetURI = uri
	return b
}

// Header sets a header field. The name is stored in lower case and the
// value is trimmed of surrounding whitespace.
func (b *Builder) Header(name, value string) *Builder {
	b.headers[strings.ToLower(name)] = strings.TrimSpace(value)
	return b
}

// Headers sets several header fields at once.
func (b *Builder) Headers(headers map[string]string) *Builder {
	for k, v := range headers {
		b.Header(k, v)
	}
	return b
}

// Body sets the request body.
func (b *Builder) Body(body string) *Builder {
	b.body = &body
	return b
}

// Build creates the SignatureComponents with validation
func (b *Builder) Build() (*SignatureComponents, error) {
	if b.method == "" {
		return nil, fmt.Errorf("method is required")
	}
	if b.targetURI == "" {
		return nil, fmt.Errorf("target URI is required")
	}

	c := &SignatureComponents{
		method:    b.method,
		targetURI: b.targetURI,
		headers:   maps.Clone(b.headers),
	}
	if b.body != nil {
		body := *b.body
		c.body = &body
	}
	return c, nil
}

// MustBuild creates the SignatureComponents and panics if validation fails
func (b *Builder) MustBuild() *SignatureComponents {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// FromRequest captures the signable parts of r. The body, if any, is read
// and restored so the request can still be sent. A content-length header is
// synthesized from r.ContentLength when the request carries a body, because
// net/http writes that header itself instead of taking it from r.Header.
func FromRequest(r *http.Request) (*SignatureComponents, error) {
	if r == nil || r.URL == nil {
		return nil, fmt.Errorf("HTTP request is required")
	}

	b := NewBuilder().
		Method(r.Method).
		TargetURI(r.URL.String())

	for name, values := range r.Header {
		b.Header(name, strings.Join(values, ", "))
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		b.Body(string(body))

		if _, ok := b.headers[ContentLengthName]; !ok {
			b.Header(ContentLengthName, strconv.Itoa(len(body)))
		}
	}

	return b.Build()
}

func (c *SignatureComponents) Method() string {
	return c.method
}

func (c *SignatureComponents) TargetURI() string {
	return c.targetURI
}

// Header returns the value of the named header field.
func (c *SignatureComponents) Header(name string) (string, bool) {
	v, ok := c.headers[strings.ToLower(name)]
	return v, ok
}

// Headers returns a copy of the header fields, keyed by lower-case name.
func (c *SignatureComponents) Headers() map[string]string {
	return maps.Clone(c.headers)
}

// Body returns the request body and whether one is present.
func (c *SignatureComponents) Body() (string, bool) {
	if c.body == nil {
		return "", false
	}
	return *c.body, true
}

// HasBody reports whether a body is present.
func (c *SignatureComponents) HasBody() bool {
	return c.body != nil
}

// WithMethod returns a copy of c with a different method.
func (c *SignatureComponents) WithMethod(method string) *SignatureComponents {
	dup := c.clone()
	dup.method = method
	return dup
}

// WithTargetURI returns a copy of c with a different target URI.
func (c *SignatureComponents) WithTargetURI(uri string) *SignatureComponents {
	dup := c.clone()
	dup.targetURI = uri
	return dup
}

// WithHeader returns a copy of c with the header field set.
func (c *SignatureComponents) WithHeader(name, value string) *SignatureComponents {
	dup := c.clone()
	dup.headers[strings.ToLower(name)] = strings.TrimSpace(value)
	return dup
}

func (c *SignatureComponents) clone() *SignatureComponents {
	dup := *c
	dup.headers = maps.Clone(c.headers)
	if dup.headers == nil {
		dup.headers = make(map[string]string)
	}
	return &dup
}

// Identifiers returns the covered components in signing order:
// @method, @target-uri, then authorization, content-digest, content-type
// and content-length when present. content-digest is only covered when the
// request has a body.
func (c *SignatureComponents) Identifiers() []Identifier {
	ids := []Identifier{Method(), TargetURI()}

	if _, ok := c.headers[AuthorizationName]; ok {
		ids = append(ids, New(AuthorizationName))
	}
	if _, ok := c.headers[ContentDigestName]; ok && c.body != nil {
		ids = append(ids, New(ContentDigestName))
	}
	if _, ok := c.headers[ContentTypeName]; ok {
		ids = append(ids, New(ContentTypeName))
	}
	if _, ok := c.headers[ContentLengthName]; ok {
		ids = append(ids, New(ContentLengthName))
	}
	return ids
}

// Resolve returns the value of the component named by id.
func (c *SignatureComponents) Resolve(id Identifier) (string, error) {
	switch id.name {
	case MethodName:
		return c.method, nil
	case TargetURIName:
		return c.targetURI, nil
	}

	if id.IsDerived() {
		return "", fmt.Errorf("%w: unsupported derived component %q", ErrComponentNotFound, id.name)
	}

	v, ok := c.headers[strings.ToLower(id.name)]
	if !ok {
		return "", fmt.Errorf("%w: header field %q", ErrComponentNotFound, id.name)
	}
	return v, nil
}

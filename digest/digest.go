// Package digest computes and checks the Content-Digest value that binds a
// request body into its signature.
//
// The value has the exact form
//
//	sha-256=:<base64 of the 32 byte SHA-256 hash>:=
//
// and is produced over the UTF-8 bytes of the body. An empty body yields the
// digest of zero bytes.
package digest

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HeaderName is the canonical name of the digest header.
const HeaderName = "Content-Digest"

const (
	prefix = "sha-256=:"
	suffix = ":="
)

var (
	// ErrDigestNotFound is returned when a Content-Digest header is
	// required but not present.
	ErrDigestNotFound = errors.New("digest: content digest not found")

	// ErrDigestMismatch is returned when the Content-Digest header does not
	// match the body.
	ErrDigestMismatch = errors.New("digest: content digest mismatch")
)

// Generate returns the Content-Digest value for body.
func Generate(body string) string {
	sum := sha256.Sum256([]byte(body))
	return prefix + base64.StdEncoding.EncodeToString(sum[:]) + suffix
}

// Validate reports whether header is the Content-Digest value of body.
// Malformed headers yield false. The comparison runs in constant time.
func Validate(body, header string) bool {
	encoded := ExtractHash(header)
	if encoded == "" {
		return false
	}

	actual, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(actual) != sha256.Size {
		return false
	}

	expected := sha256.Sum256([]byte(body))
	return subtle.ConstantTimeCompare(expected[:], actual) == 1
}

// ExtractHash returns the base64 payload of a Content-Digest value, or an
// empty string if header does not have the expected shape.
func ExtractHash(header string) string {
	if !strings.HasPrefix(header, prefix) || !strings.HasSuffix(header, suffix) {
		return ""
	}
	if len(header) <= len(prefix)+len(suffix) {
		return ""
	}
	return header[len(prefix) : len(header)-len(suffix)]
}

// IsValidFormat reports whether header matches sha-256=:<base64>:= and its
// payload decodes to exactly 32 bytes.
func IsValidFormat(header string) bool {
	encoded := ExtractHash(header)
	if encoded == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	return len(decoded) == sha256.Size
}

// SetRequestDigest reads the request body, sets the Content-Digest header,
// and replaces the body so it can be read again. Requests without a body
// are left untouched.
func SetRequestDigest(r *http.Request) error {
	if r == nil {
		return fmt.Errorf("digest: request must not be nil")
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return fmt.Errorf("digest: failed to read request body: %w", err)
	}

	r.Header.Set(HeaderName, Generate(string(body)))
	return nil
}

// VerifyRequest checks the Content-Digest header of r against its body.
func VerifyRequest(r *http.Request) error {
	if r == nil {
		return fmt.Errorf("digest: request must not be nil")
	}

	header := r.Header.Get(HeaderName)
	if header == "" {
		return ErrDigestNotFound
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return fmt.Errorf("digest: failed to read request body: %w", err)
	}

	if !Validate(string(body), header) {
		return ErrDigestMismatch
	}
	return nil
}

// readAndRestoreBody reads the entire request body and replaces it with a
// new reader so the body can be consumed again downstream.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	return body, nil
}

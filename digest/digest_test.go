package digest_test

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boniface/opsig/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, fmt.Errorf("read error") }
func (errReader) Close() error             { return nil }

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("Known value", func(t *testing.T) {
		t.Parallel()
		body := `{"hello": "world"}`
		sum := sha256.Sum256([]byte(body))
		want := "sha-256=:" + base64.StdEncoding.EncodeToString(sum[:]) + ":="
		require.Equal(t, want, digest.Generate(body))
	})

	t.Run("Empty body is the digest of zero bytes", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "sha-256=:47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=:=", digest.Generate(""))
	})

	t.Run("Deterministic", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, digest.Generate("abc"), digest.Generate("abc"))
		require.NotEqual(t, digest.Generate("abc"), digest.Generate("abd"))
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"empty":   "",
		"short":   "a",
		"json":    `{"amount":"100","assetCode":"USD","assetScale":2}`,
		"unicode": "paiement reçu ✓",
		"large":   strings.Repeat("0123456789", 1000),
		"larger":  strings.Repeat("x", 10_001),
	}

	for name, body := range bodies {
		t.Run("Round trip "+name, func(t *testing.T) {
			t.Parallel()
			require.True(t, digest.Validate(body, digest.Generate(body)))
		})
	}

	t.Run("Different body fails", func(t *testing.T) {
		t.Parallel()
		require.False(t, digest.Validate("tampered", digest.Generate("original")))
	})

	malformed := []string{
		"",
		"sha-256=:not base64!:=",
		"sha-512=:" + base64.StdEncoding.EncodeToString(make([]byte, 32)) + ":=",
		"sha-256=:" + base64.StdEncoding.EncodeToString(make([]byte, 16)) + ":=",
		"sha-256=:" + base64.StdEncoding.EncodeToString(make([]byte, 32)) + ":",
		"garbage",
	}
	for i, header := range malformed {
		t.Run(fmt.Sprintf("Malformed header %d yields false", i), func(t *testing.T) {
			t.Parallel()
			require.False(t, digest.Validate("body", header))
		})
	}
}

func TestExtractHashAndFormat(t *testing.T) {
	t.Parallel()

	valid := digest.Generate("body")
	require.True(t, digest.IsValidFormat(valid))
	require.Equal(t, valid[len("sha-256=:"):len(valid)-len(":=")], digest.ExtractHash(valid))

	testCases := []struct {
		name   string
		header string
	}{
		{name: "Empty", header: ""},
		{name: "Missing prefix", header: "sha256=:abc:="},
		{name: "Missing trailing equals", header: "sha-256=:" + base64.StdEncoding.EncodeToString(make([]byte, 32)) + ":"},
		{name: "Empty payload", header: "sha-256=::="},
		{name: "Bad base64", header: "sha-256=:***:="},
		{name: "Wrong length", header: "sha-256=:" + base64.StdEncoding.EncodeToString(make([]byte, 31)) + ":="},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.False(t, digest.IsValidFormat(tc.header))
		})
	}

	require.Empty(t, digest.ExtractHash("nope"))
	require.Empty(t, digest.ExtractHash("sha-256=::="))
}

func TestSetRequestDigest(t *testing.T) {
	t.Parallel()

	t.Run("Sets header and restores body", func(t *testing.T) {
		t.Parallel()
		body := `{"walletAddress":"https://wallet.example/alice"}`
		req := httptest.NewRequest(http.MethodPost, "https://example.com/quotes", strings.NewReader(body))

		require.NoError(t, digest.SetRequestDigest(req))
		require.Equal(t, digest.Generate(body), req.Header.Get(digest.HeaderName))

		restored, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(restored))

		again, err := req.GetBody()
		require.NoError(t, err)
		restored, err = io.ReadAll(again)
		require.NoError(t, err)
		require.Equal(t, body, string(restored))
	})

	t.Run("No body leaves request untouched", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
		require.NoError(t, digest.SetRequestDigest(req))
		require.Empty(t, req.Header.Get(digest.HeaderName))
	})

	t.Run("Broken body reader", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "https://example.com/", errReader{})
		require.Error(t, digest.SetRequestDigest(req))
	})

	t.Run("Nil request", func(t *testing.T) {
		t.Parallel()
		require.Error(t, digest.SetRequestDigest(nil))
	})
}

func TestVerifyRequest(t *testing.T) {
	t.Parallel()

	t.Run("Valid", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "https://example.com/", strings.NewReader("hello"))
		require.NoError(t, digest.SetRequestDigest(req))
		assert.NoError(t, digest.VerifyRequest(req))
	})

	t.Run("Missing header", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "https://example.com/", strings.NewReader("hello"))
		assert.ErrorIs(t, digest.VerifyRequest(req), digest.ErrDigestNotFound)
	})

	t.Run("Mismatch", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "https://example.com/", strings.NewReader("hello"))
		req.Header.Set(digest.HeaderName, digest.Generate("goodbye"))
		assert.ErrorIs(t, digest.VerifyRequest(req), digest.ErrDigestMismatch)
	})
}

package opsig_test

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"testing"

	"github.com/boniface/opsig"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
)

func TestKeyMaterial(t *testing.T) {
	t.Parallel()

	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	priv := ed25519.NewKeyFromSeed(seed)

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	testcases := []struct {
		Name string
		Data []byte
	}{
		{Name: "PEM", Data: pemBytes},
		{Name: "base64 PEM", Data: []byte(base64.StdEncoding.EncodeToString(pemBytes))},
		{Name: "base64 DER", Data: []byte(base64.StdEncoding.EncodeToString(der))},
		{Name: "base64 seed", Data: []byte(base64.StdEncoding.EncodeToString(seed))},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			km, err := opsig.ParseKeyMaterial("key-1", tc.Data)
			require.NoError(t, err)
			require.Equal(t, "key-1", km.KeyID())
			require.Equal(t, opsig.AlgorithmEd25519, km.Algorithm())
			require.Equal(t, priv.Public(), km.PublicKey())
		})
	}

	t.Run("invalid input", func(t *testing.T) {
		t.Parallel()
		for _, data := range []string{"", "%%%", base64.StdEncoding.EncodeToString([]byte("short"))} {
			_, err := opsig.ParseKeyMaterial("key-1", []byte(data))
			require.ErrorIs(t, err, opsig.ErrInvalidArgument, "input %q", data)
		}
	})

	t.Run("constructor validation", func(t *testing.T) {
		t.Parallel()
		_, err := opsig.NewKeyMaterial("", priv)
		require.ErrorIs(t, err, opsig.ErrInvalidArgument)
		_, err = opsig.NewKeyMaterial("k", priv[:10])
		require.ErrorIs(t, err, opsig.ErrInvalidArgument)
		_, err = opsig.NewVerifier("k", []byte{1, 2, 3})
		require.ErrorIs(t, err, opsig.ErrInvalidArgument)
	})

	t.Run("public JWK", func(t *testing.T) {
		t.Parallel()
		km, err := opsig.NewKeyMaterial("key-1", priv)
		require.NoError(t, err)

		key, err := km.PublicJWK()
		require.NoError(t, err)

		kid, ok := key.KeyID()
		require.True(t, ok)
		require.Equal(t, "key-1", kid)

		var pub ed25519.PublicKey
		require.NoError(t, jwk.Export(key, &pub))
		require.Equal(t, km.PublicKey(), pub)
	})
}

package opsig_test

import (
	"fmt"
	"time"

	"github.com/boniface/opsig"
	"github.com/boniface/opsig/clock"
	"github.com/boniface/opsig/component"
	"github.com/boniface/opsig/digest"
)

// ExampleEngine_CreateSignatureHeaders demonstrates how to sign a request
// description and validate the result.
func ExampleEngine_CreateSignatureHeaders() {
	key, err := opsig.GenerateKeyMaterial("my-key-id")
	if err != nil {
		panic(err)
	}

	engine, err := opsig.NewEngine(key,
		opsig.WithClock(clock.FixedClock(time.Unix(1618884473, 0))),
		opsig.WithNonceGenerator(func() string { return "n-1" }),
	)
	if err != nil {
		panic(err)
	}

	body := `{"incomingAmount":{"value":"100","assetCode":"USD","assetScale":2}}`
	comps := component.NewBuilder().
		Method("POST").
		TargetURI("https://wallet.example/incoming-payments").
		Header("Authorization", "GNAP 123454321").
		Header("Content-Type", "application/json").
		Header("Content-Digest", digest.Generate(body)).
		Body(body).
		MustBuild()

	headers, err := engine.CreateSignatureHeaders(comps)
	if err != nil {
		panic(err)
	}
	fmt.Println(headers[opsig.SignatureInputHeader])

	sig, err := opsig.ParseSignatureHeader(headers[opsig.SignatureHeader])
	if err != nil {
		panic(err)
	}
	fmt.Printf("signature is %d bytes of base64\n", len(sig))
	// Output:
	// sig=("@method" "@target-uri" "authorization" "content-digest" "content-type");created=1618884473;keyid="my-key-id";alg="ed25519";nonce="n-1"
	// signature is 88 bytes of base64
}

// ExampleEngine_Validate demonstrates validating a signature with only the
// public key.
func ExampleEngine_Validate() {
	key, err := opsig.GenerateKeyMaterial("my-key-id")
	if err != nil {
		panic(err)
	}
	engine, err := opsig.NewEngine(key)
	if err != nil {
		panic(err)
	}

	comps := component.NewBuilder().
		Method("GET").
		TargetURI("https://wallet.example/alice").
		MustBuild()

	sig, err := engine.Sign(comps)
	if err != nil {
		panic(err)
	}

	verifier, err := opsig.NewVerifier(key.KeyID(), key.PublicKey())
	if err != nil {
		panic(err)
	}

	ok, err := verifier.Validate(comps, sig.Value(), sig.Parameters())
	if err != nil {
		panic(err)
	}
	fmt.Printf("valid: %t\n", ok)

	ok, err = verifier.Validate(comps.WithMethod("DELETE"), sig.Value(), sig.Parameters())
	if err != nil {
		panic(err)
	}
	fmt.Printf("valid after tampering: %t\n", ok)
	// Output:
	// valid: true
	// valid after tampering: false
}

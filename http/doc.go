// Package http provides a client that signs every outgoing request with
// RFC 9421 HTTP Message Signatures and sends it through a retrying,
// circuit-breaking transport.
//
// A request passes through these stages:
//
//   - an X-Request-Id is assigned once per call
//   - for each attempt, the Authorization header is set from the token
//     source, then the Content-Digest, then the Signature-Input and
//     Signature headers
//   - the attempt is sent through the underlying http.RoundTripper
//   - retryable statuses and transport errors are retried with backoff
//     until the budget is spent or the circuit opens
//
// # Basic Usage
//
//	key, err := opsig.ParseKeyMaterial("my-key-id", pemBytes)
//	if err != nil {
//		return err
//	}
//
//	client, err := http.NewClient(key,
//		http.WithTokenSource(interceptor.StaticToken(accessToken)),
//	)
//	if err != nil {
//		return err
//	}
//
//	resp, err := client.Do(ctx, req)
//
// Client.HTTPClient returns an *http.Client for code that expects one.
//
// # Named Clients
//
// Applications that talk to several servers keep their clients in a
// Registry:
//
//	registry := http.NewRegistry()
//	if err := registry.Register("sender-wallet", client); err != nil {
//		return err
//	}
//	resp, err := registry.MustGet("sender-wallet").Do(ctx, req)
package http

package opsig

import "errors"

var (
	// ErrInvalidArgument is returned when a required argument is missing or
	// malformed.
	ErrInvalidArgument = errors.New("opsig: invalid argument")

	// ErrSignatureEncoding is returned by validation when the signature value
	// is not valid base64.
	ErrSignatureEncoding = errors.New("opsig: signature is not valid base64")

	// ErrSignature is returned when the signing primitive fails.
	ErrSignature = errors.New("opsig: failed to compute signature")
)

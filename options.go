package opsig

import (
	"github.com/boniface/opsig/clock"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// EngineOption configures an Engine.
type EngineOption interface {
	Option
	engineOption()
}

type engineOption struct {
	Option
}

func (engineOption) engineOption() {}

// WithClock sets the clock used for the created parameter.
func WithClock(c clock.Clock) EngineOption {
	return engineOption{option.New(identClock{}, c)}
}

// WithNonceGenerator replaces the nonce source. The function must return a
// value that never repeats; it exists for deterministic tests.
func WithNonceGenerator(fn func() string) EngineOption {
	return engineOption{option.New(identNonceGenerator{}, fn)}
}

// WithLabel sets the signature label. The default is "sig".
func WithLabel(label string) EngineOption {
	return engineOption{option.New(identLabel{}, label)}
}

type identClock struct{}

func (identClock) String() string { return "WithClock" }

type identNonceGenerator struct{}

func (identNonceGenerator) String() string { return "WithNonceGenerator" }

type identLabel struct{}

func (identLabel) String() string { return "WithLabel" }

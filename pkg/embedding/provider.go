// Package embedding defines the capability handle the semantic match strategy
// depends on. The model itself lives behind whatever backend the caller wires
// in; this service only ever sees vectors.
package embedding

import "context"

// Provider produces a vector embedding for a piece of text. Implementations
// must be safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Func adapts a plain function into a Provider.
type Func func(ctx context.Context, text string) ([]float64, error)

// Embed implements Provider.
func (f Func) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}

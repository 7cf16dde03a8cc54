package ai

import "context"

// Completer is the text-inference capability consumed by the compatibility
// scorer. Implementations are expected to be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

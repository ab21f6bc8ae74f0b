package backend

import "context"

// Mock is a scriptable Generator for tests and dry runs.
type Mock struct {
	// Fn produces the completion. Nil echoes the prompt unchanged.
	Fn func(req Request) (string, error)
}

func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	if m.Fn == nil {
		return req.Prompt, nil
	}
	return m.Fn(req)
}

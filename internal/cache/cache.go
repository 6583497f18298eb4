// Handles loading and memoizing static resources served by the middleware
package cache

import "context"

// Source interface for reading raw resource bytes
type Source interface {
	// reads the whole resource identified by name.
	// name is a slash-separated path, relative to the source root
	Read(ctx context.Context, name string) ([]byte, error)
}

// SourceFunc adapts a plain function to the Source interface
type SourceFunc func(ctx context.Context, name string) ([]byte, error)

// Read calls f(ctx, name)
func (f SourceFunc) Read(ctx context.Context, name string) ([]byte, error) {
	return f(ctx, name)
}

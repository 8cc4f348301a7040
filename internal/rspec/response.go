// Package rspec implements the RSpec-specific requests: helper definition
// resolution and test command resolution.
package rspec

// ResponseBuilder is an append-only ordered collection of response items.
type ResponseBuilder[T any] struct {
	items []T
}

// NewResponseBuilder creates an empty builder.
func NewResponseBuilder[T any]() *ResponseBuilder[T] {
	return &ResponseBuilder[T]{}
}

// Append adds item after everything appended so far.
func (b *ResponseBuilder[T]) Append(item T) {
	b.items = append(b.items, item)
}

// Len returns the number of items collected.
func (b *ResponseBuilder[T]) Len() int {
	return len(b.items)
}

// Response returns the collected items in append order. The result is
// never nil so it serializes as an empty JSON array.
func (b *ResponseBuilder[T]) Response() []T {
	if b.items == nil {
		return []T{}
	}

	return b.items
}

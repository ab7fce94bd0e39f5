// Package chunker splits oversized batch requests into store-compliant
// chunks. Slicing is strictly sequential: concatenating chunk items in
// order reproduces the original list, so original order is always
// recoverable.
package chunker

// Chunk is one request-sized slice of a larger batch. Offset is the
// original index of Items[0], enabling result reassembly in
// caller-visible order when required.
type Chunk[T any] struct {
	Offset int
	Items  []T
}

// Split partitions items into chunks of at most size elements. Items
// are not copied or reordered; chunks alias the input slice. Empty
// input yields no chunks, which the executor treats as an immediate
// empty success.
func Split[T any](items []T, size int) []Chunk[T] {
	if len(items) == 0 || size <= 0 {
		return nil
	}

	chunks := make([]Chunk[T], 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, Chunk[T]{Offset: start, Items: items[start:end]})
	}

	return chunks
}

//go:build debug

package ctcdecode

import "fmt"

// handleUnknownToken in a debug build treats a decoder emitting a token
// id the vocabulary can't resolve as a logic error, not a runtime
// condition to recover from.
func handleUnknownToken(id int, lookupErr error) (string, error) {
	panic(fmt.Sprintf("ctcdecode: token id %d not resolvable by vocabulary: %v", id, lookupErr))
}

//go:build !debug

package ctcdecode

import "fmt"

// handleUnknownToken in a release build substitutes a placeholder and
// lets decoding continue rather than dropping the whole call's text
// over one bad id.
func handleUnknownToken(id int, lookupErr error) (string, error) {
	return fmt.Sprintf("[UNK:%d]", id), nil
}

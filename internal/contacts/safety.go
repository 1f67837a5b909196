// ABOUTME: Safety number generation for contact verification
// ABOUTME: Four groups of four characters from [A-Z0-9], hyphen-joined

package contacts

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const safetyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateSafetyNumber returns a fresh safety number in the form
// XXXX-XXXX-XXXX-XXXX, drawn uniformly at random.
func generateSafetyNumber() (string, error) {
	segments := make([]string, 4)
	var sb strings.Builder
	for i := range segments {
		sb.Reset()
		for j := 0; j < 4; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(safetyAlphabet))))
			if err != nil {
				return "", fmt.Errorf("generating safety number: %w", err)
			}
			sb.WriteByte(safetyAlphabet[n.Int64()])
		}
		segments[i] = sb.String()
	}
	return strings.Join(segments, "-"), nil
}

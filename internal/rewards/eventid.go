package rewards

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/memalerts/memalerts-backend/pkg/enums"
)

const stableEventIDLen = 32

// StableProviderEventID derives a deterministic event id for providers that
// do not supply one. Identical inputs always hash to the same id; each input
// is length-prefixed so distinct tuples cannot collide by concatenation.
func StableProviderEventID(provider enums.Provider, rawPayload []byte, fallbackParts ...string) string {
	var b strings.Builder
	writePart(&b, string(provider))
	writePart(&b, string(rawPayload))
	for _, part := range fallbackParts {
		writePart(&b, part)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:stableEventIDLen]
}

func writePart(b *strings.Builder, part string) {
	fmt.Fprintf(b, "%d:%s|", len(part), part)
}

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/metadata-validator/internal/document"
)

// fingerprintLen is how much of the registry fingerprint goes into a key
const fingerprintLen = 16

// Key derives the cache key for doc graded as kind by a registry with the
// given fingerprint. A report graded under other declarations never shares a
// key with the current one. encoding/json writes map keys in sorted order, so
// equal documents share a key.
func Key(fingerprint, kind string, doc document.Document) (string, error) {
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	if len(fingerprint) > fingerprintLen {
		fingerprint = fingerprint[:fingerprintLen]
	}
	hash := sha256.Sum256(canonical)
	return fingerprint + ":" + kind + ":" + hex.EncodeToString(hash[:]), nil
}

package buildconfig

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex BLAKE3 digest of the record's JSON encoding.
// Structurally identical records always share a fingerprint.
func Fingerprint(opts BuildOptions) (string, error) {
	data, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("failed to encode build options: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

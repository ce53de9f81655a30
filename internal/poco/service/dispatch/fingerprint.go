package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/libreassistant/poco/pkg/utils/json"
)

// Fingerprint digests one requested plugin call for consecutive-duplicate
// detection. The input is marshalled with sorted map keys, so permutations
// of the same mapping collapse onto one digest. The reserved operation key
// participates like any other input field.
func Fingerprint(pluginID string, input map[string]interface{}) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("canonicalise input for %s: %w", pluginID, err)
	}

	h := sha256.New()
	h.Write([]byte(pluginID))
	h.Write([]byte{'\n'})
	h.Write(payload)

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Package idgen generates the anonymous identities stamped on pledges.
package idgen

import (
	"errors"
	"fmt"
	"os"
	"strings"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultPrefix marks generated anonymous client ids.
const DefaultPrefix = "anon-"

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// Generate returns a new anonymous client id.
func Generate() (string, error) {
	return GenerateWithPrefix(DefaultPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// LoadOrCreate returns the client id saved at path, generating and saving a
// new one on first use so a client keeps one identity across runs.
func LoadOrCreate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("idgen: reading %s: %w", path, err)
	}

	id, err := Generate()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("idgen: saving %s: %w", path, err)
	}
	return id, nil
}

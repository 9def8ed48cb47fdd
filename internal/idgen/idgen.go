// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the kinds of ids the service hands out.
const (
	SessionPrefix = "hs-"
	EventPrefix   = "ev-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// Session returns a new id for a coordination session instance. Restarting
// a meeting's session yields a new id, which lets clients tell the two apart.
func Session() (string, error) {
	return GenerateWithPrefix(SessionPrefix)
}

// Event returns a new id for a broadcast payload.
func Event() (string, error) {
	return GenerateWithPrefix(EventPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

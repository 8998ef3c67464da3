// Package id generates unique identifiers for domain records.
package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a new random identifier string.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return value.String(), nil
}

package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random record id, optionally prefixed ("ws_…").
func NewID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

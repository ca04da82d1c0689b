package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID mints a short random run identifier, e.g. "run_3fa85f642019".
func NewRunID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "run_" + hex[:12]
}

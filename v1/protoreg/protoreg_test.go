package protoreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictPolicy_DefaultsToIgnore(t *testing.T) {
	assert.NotEmpty(t, ConflictPolicy())
	assert.Contains(t, []string{"ignore", "warn"}, ConflictPolicy())
}

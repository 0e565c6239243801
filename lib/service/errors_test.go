package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	verr.Add("type", "must be one of cash, bank")
	verr.Add("amount", "is required")
	verr.Add("amount", "must not be negative")
	assert.Equal(t, "validation failed: amount: is required, type: must be one of cash, bank", verr.Error())

	err := fmt.Errorf("create account: %w", verr.OrNil())
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: ledger_entries.reference")))
	assert.False(t, isUniqueViolation(errors.New("NOT NULL constraint failed: ledger_entries.motif")))
	assert.True(t, errors.Is(errReferenceTaken, ErrConflict))
}

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "TRANS-00042", FormatReference("TRANS", 42))
	assert.Equal(t, "ACC-123456", FormatReference("ACC", 123456))
}

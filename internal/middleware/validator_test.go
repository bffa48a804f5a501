package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTenantAndSubjectID(t *testing.T) {
	assert.NoError(t, ValidateTenantID("sekolah-1"))
	assert.NoError(t, ValidateSubjectID("s_0042"))

	assert.Error(t, ValidateTenantID(""))
	assert.Error(t, ValidateTenantID("sekolah/1"))
	assert.Error(t, ValidateSubjectID(strings.Repeat("a", 65)))
}

func TestValidateEntryID(t *testing.T) {
	assert.NoError(t, ValidateEntryID("a1b2c3d4-e5f6-a1b2-c3d4-e5f6a1b2c3d4-triage"))

	assert.Error(t, ValidateEntryID(""))
	assert.Error(t, ValidateEntryID("a1b2c3d4-e5f6-a1b2-c3d4-e5f6a1b2c3d4"))
	assert.Error(t, ValidateEntryID("not-an-id"))
}

func TestValidateTextInput(t *testing.T) {
	assert.NoError(t, ValidateTextInput(strings.Repeat("a", MaxTextLen)))
	assert.Error(t, ValidateTextInput(strings.Repeat("a", MaxTextLen+1)))
}

func TestValidateMediaSize(t *testing.T) {
	assert.NoError(t, ValidateMediaSize("voice", MaxVoiceBytes, MaxVoiceBytes))
	assert.Error(t, ValidateMediaSize("voice", MaxVoiceBytes+1, MaxVoiceBytes))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "halo dunia", SanitizeString("  halo\x00 dunia\x07  "))
	assert.Equal(t, "baris\nsatu", SanitizeString("baris\nsatu"))
}

func TestValidateLimit(t *testing.T) {
	assert.Equal(t, 20, ValidateLimit(0))
	assert.Equal(t, 20, ValidateLimit(-5))
	assert.Equal(t, 7, ValidateLimit(7))
	assert.Equal(t, 100, ValidateLimit(5000))
}

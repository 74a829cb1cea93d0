package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaymentReference_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^PAY-\d+-[0-9A-Z]{6}$`)
	ref := NewPaymentReference()
	assert.Regexp(t, pattern, ref)
	assert.Equal(t, strings.ToUpper(ref), ref)
}

func TestNewPaymentReference_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := NewPaymentReference()
		assert.False(t, seen[ref], "duplicate reference %s", ref)
		seen[ref] = true
	}
}

func TestNewProviderReference_CarriesPrefix(t *testing.T) {
	ref := NewProviderReference("WAVE")
	assert.Regexp(t, regexp.MustCompile(`^WAVE-\d+-[0-9A-Z]{6}$`), ref)
}

func TestRandomToken_AlphabetAndLength(t *testing.T) {
	token := RandomToken(32)
	assert.Len(t, token, 32)
	for _, c := range token {
		assert.Contains(t, refAlphabet, string(c))
	}
	// Ambiguous characters are excluded from the alphabet.
	for _, banned := range []string{"I", "L", "O", "U"} {
		assert.NotContains(t, refAlphabet, banned)
	}
}

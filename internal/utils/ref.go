package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Crockford Base32 alphabet: unambiguous uppercase characters for
// human-readable payment references.
const refAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// RandomToken returns n random characters from the reference alphabet.
func RandomToken(n int) string {
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	if err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// time-derived token rather than returning an empty reference.
		return strings.ToUpper(fmt.Sprintf("%x", time.Now().UnixNano()))[:n]
	}
	for i, b := range buf {
		buf[i] = refAlphabet[int(b)%len(refAlphabet)]
	}
	return string(buf)
}

// NewPaymentReference generates a globally unique payment reference of the
// form PAY-<timestamp>-<random>, uppercase.
func NewPaymentReference() string {
	return fmt.Sprintf("PAY-%d-%s", time.Now().UnixMilli(), RandomToken(6))
}

// NewProviderReference generates a provider-style reference with the given
// prefix, e.g. WAVE-1712345678901-7H3K9Q.
func NewProviderReference(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), RandomToken(6))
}

package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testKey = "0000000000000000000000000000000000000000000000000000000000000000"

func TestNewAESEncryptionService(t *testing.T) {
	_, err := NewAESEncryptionService(testKey)
	assert.NoError(t, err)

	_, err = NewAESEncryptionService("not-hex")
	assert.Error(t, err)

	_, err = NewAESEncryptionService("abcd")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewAESEncryptionService(testKey)
	assert.NoError(t, err)

	sealed, err := svc.Encrypt("AUTH_k3zsm9r8hbhk2vp2")
	assert.NoError(t, err)
	assert.NotContains(t, sealed, "AUTH_")

	plain, err := svc.Decrypt(sealed)
	assert.NoError(t, err)
	assert.Equal(t, "AUTH_k3zsm9r8hbhk2vp2", plain)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	svc, _ := NewAESEncryptionService(testKey)

	sealed, err := svc.Encrypt("AUTH_k3zsm9r8hbhk2vp2")
	assert.NoError(t, err)

	tampered := strings.Replace(sealed, sealed[10:11], "A", 1)
	if tampered == sealed {
		tampered = strings.Replace(sealed, sealed[10:11], "B", 1)
	}

	_, err = svc.Decrypt(tampered)
	assert.Error(t, err)
}

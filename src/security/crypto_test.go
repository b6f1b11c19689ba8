package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	t.Setenv("BROKERAGE_CREDENTIALS_KEY", key)

	sealed, err := EncryptString("access-token-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "access-token-123")

	again, err := EncryptString("access-token-123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "access-token-123", plain)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()

	sealed, err := EncryptStringWithKey(k1, "secret")
	require.NoError(t, err)

	_, err = DecryptStringWithKey(k2, sealed)
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = DecryptStringWithKey(k1, "not-base64!!")
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = DecryptStringWithKey(k1, "c2hvcnQ=")
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestKeyValidation(t *testing.T) {
	_, err := EncryptStringWithKey("", "x")
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = EncryptStringWithKey("c2hvcnQ=", "x")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

package vault

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewEncryptor_KeyValidation(t *testing.T) {
	if _, err := NewEncryptor("not base64!!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
	if _, err := NewEncryptor(base64.StdEncoding.EncodeToString(make([]byte, 16))); err == nil {
		t.Fatalf("expected error for short key")
	}
	if _, err := NewEncryptor(testKey(t)); err != nil {
		t.Fatalf("unexpected error for valid key: %v", err)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	fields := SensitiveFields{
		PIIPointer:  "vault://pii/abc",
		LegalName:   "Jamie Rivera",
		DOBFragment: "1990-04",
	}

	payload, err := enc.Encrypt(fields)
	require.NoError(t, err)
	assert.NotEmpty(t, payload.IV)
	assert.NotEmpty(t, payload.AuthTag)
	assert.NotEmpty(t, payload.Ciphertext)

	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	require.NoError(t, err)
	assert.Len(t, iv, 12)

	decrypted, err := enc.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, fields, *decrypted)
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	fields := SensitiveFields{LegalName: "Jamie Rivera"}
	first, err := enc.Encrypt(fields)
	require.NoError(t, err)
	second, err := enc.Encrypt(fields)
	require.NoError(t, err)

	assert.NotEqual(t, first.IV, second.IV)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestDecrypt_TamperDetection(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	payload, err := enc.Encrypt(SensitiveFields{LegalName: "Jamie Rivera"})
	require.NoError(t, err)

	tamper := func(encoded string) string {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	tampered := *payload
	tampered.Ciphertext = tamper(payload.Ciphertext)
	if _, err := enc.Decrypt(&tampered); err == nil {
		t.Fatalf("expected tampered ciphertext to fail authentication")
	}

	tampered = *payload
	tampered.AuthTag = tamper(payload.AuthTag)
	if _, err := enc.Decrypt(&tampered); err == nil {
		t.Fatalf("expected tampered auth tag to fail authentication")
	}

	tampered = *payload
	tampered.IV = tamper(payload.IV)
	if _, err := enc.Decrypt(&tampered); err == nil {
		t.Fatalf("expected tampered iv to fail authentication")
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	enc, err := NewEncryptor(testKey(t))
	require.NoError(t, err)
	other, err := NewEncryptor(testKey(t))
	require.NoError(t, err)

	payload, err := enc.Encrypt(SensitiveFields{LegalName: "Jamie Rivera"})
	require.NoError(t, err)

	if _, err := other.Decrypt(payload); err == nil {
		t.Fatalf("expected decryption with a different key to fail")
	}
}

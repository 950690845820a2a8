package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const ivLength = 12

// Encryptor seals sensitive field bundles with AES-256-GCM. Each Encrypt
// call draws a fresh random 96-bit IV.
type Encryptor struct {
	key []byte
}

// NewEncryptor decodes the base64 key material and requires exactly 32 bytes.
func NewEncryptor(base64Key string) (*Encryptor, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("vault encryption key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("vault encryption key must be 32 bytes (base64 encoded)")
	}
	return &Encryptor{key: key}, nil
}

// Encrypt seals the whole bundle as one JSON blob. The bundle is the unit of
// confidentiality; fields are never encrypted separately.
func (e *Encryptor) Encrypt(fields SensitiveFields) (*EncryptedPayload, error) {
	plaintext, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	tagStart := len(sealed) - gcm.Overhead()

	return &EncryptedPayload{
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagStart:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
	}, nil
}

// Decrypt opens an envelope produced by Encrypt. Any tampering with the
// ciphertext, IV, or auth tag fails authentication.
func (e *Encryptor) Decrypt(payload *EncryptedPayload) (*SensitiveFields, error) {
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return nil, fmt.Errorf("decode iv: %w", err)
	}
	authTag, err := base64.StdEncoding.DecodeString(payload.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("decode auth tag: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, iv, append(ciphertext, authTag...), nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt sensitive fields: %w", err)
	}

	var fields SensitiveFields
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, err
	}
	return &fields, nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

package crypto

import (
	"context"
	"fmt"
	"strings"
)

// MockEncryptor implements Encryptor for local development (no KMS required).
// Ciphertext is the plaintext prefixed with "mock:<subject>:".
type MockEncryptor struct{}

func NewMockEncryptor() *MockEncryptor {
	return &MockEncryptor{}
}

func (m *MockEncryptor) Encrypt(_ context.Context, subject, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	return "mock:" + subject + ":" + plaintext, nil
}

func (m *MockEncryptor) Decrypt(_ context.Context, subject, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	prefix := "mock:" + subject + ":"
	if !strings.HasPrefix(ciphertext, prefix) {
		return "", fmt.Errorf("ciphertext does not belong to %q", subject)
	}
	return strings.TrimPrefix(ciphertext, prefix), nil
}

package utils

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := `{"api_key":"glsa_secret_token"}`

	encrypted, err := EncryptString("passphrase-1", plaintext)
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	if strings.Contains(encrypted, "glsa_secret_token") {
		t.Error("ciphertext must not contain the plaintext")
	}

	decrypted, err := DecryptString("passphrase-1", encrypted)
	if err != nil {
		t.Fatalf("DecryptString failed: %v", err)
	}
	if decrypted != plaintext {
		t.Errorf("decrypted = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptString_UniqueNonce(t *testing.T) {
	a, err := EncryptString("key", "same input")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	b, err := EncryptString("key", "same input")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions of the same input should differ")
	}
}

func TestDecryptString_WrongKey(t *testing.T) {
	encrypted, err := EncryptString("right-key", "secret")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	if _, err := DecryptString("wrong-key", encrypted); err == nil {
		t.Error("decryption with the wrong key must fail")
	}
}

func TestDecryptString_GarbageInput(t *testing.T) {
	if _, err := DecryptString("key", "not base64 !!!"); err == nil {
		t.Error("non-base64 input must fail")
	}
	if _, err := DecryptString("key", "c2hvcnQ="); err == nil {
		t.Error("input shorter than the nonce must fail")
	}
}

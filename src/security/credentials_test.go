package security

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
)

func setTestKey(t *testing.T) {
	t.Helper()
	raw := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	t.Setenv("VENUE_CREDENTIALS_KEY", base64.StdEncoding.EncodeToString(raw))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	setTestKey(t)

	sealed, err := EncryptString("api-secret-123")
	if err != nil {
		t.Fatalf("unexpected encrypt error: %v", err)
	}
	if sealed == "api-secret-123" {
		t.Fatal("ciphertext must not equal plaintext")
	}

	opened, err := DecryptString(sealed)
	if err != nil {
		t.Fatalf("unexpected decrypt error: %v", err)
	}
	if opened != "api-secret-123" {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	setTestKey(t)

	if _, err := DecryptString("not-base64!!"); err == nil {
		t.Fatal("expected error for invalid ciphertext")
	}
	if _, err := DecryptString(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Fatal("expected error for truncated ciphertext")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	setTestKey(t)
	sealed, err := EncryptString("api-secret-123")
	if err != nil {
		t.Fatalf("unexpected encrypt error: %v", err)
	}

	setTestKey(t) // rotate to a different key
	if _, err := DecryptString(sealed); err == nil {
		t.Fatal("expected error when opening with the wrong key")
	}
}

func TestMissingKeyFails(t *testing.T) {
	t.Setenv("VENUE_CREDENTIALS_KEY", "")
	if _, err := EncryptString("x"); err == nil {
		t.Fatal("expected error without a configured key")
	}
}

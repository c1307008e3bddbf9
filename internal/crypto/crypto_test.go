package crypto

import "testing"

func TestDeriveKeyDeterministic(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt: %v", err)
	}
	k1, err := DeriveKey("master-key-1", salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, err := DeriveKey("master-key-1", salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if string(k1) != string(k2) {
		t.Fatalf("DeriveKey not deterministic for identical inputs")
	}
}

func TestDeriveKeyDiffersByMasterOrSalt(t *testing.T) {
	salt1, _ := NewSalt()
	salt2, _ := NewSalt()

	k1, _ := DeriveKey("master-1", salt1)
	k2, _ := DeriveKey("master-2", salt1)
	if string(k1) == string(k2) {
		t.Fatalf("different master keys produced identical derived key")
	}

	k3, _ := DeriveKey("master-1", salt2)
	if string(k1) == string(k3) {
		t.Fatalf("different salts produced identical derived key")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	salt, _ := NewSalt()
	key, err := DeriveKey("master", salt)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}

	plaintext := "John Smith, SSN 123-45-6789"
	ct, nonce, err := EncryptString(plaintext, key)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}

	got, err := DecryptString(ct, key, nonce)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != plaintext {
		t.Fatalf("round trip mismatch: want %q got %q", plaintext, got)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	salt, _ := NewSalt()
	key1, _ := DeriveKey("master-1", salt)
	key2, _ := DeriveKey("master-2", salt)

	ct, nonce, err := EncryptString("secret", key1)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	if _, err := DecryptString(ct, key2, nonce); err != ErrAuthenticationFailed {
		t.Fatalf("want ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	salt, _ := NewSalt()
	key, _ := DeriveKey("master", salt)

	ct, nonce, err := EncryptString("secret", key)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	tampered := make([]byte, len(ct))
	copy(tampered, ct)
	tampered[0] ^= 0xFF

	if _, err := Decrypt(tampered, key, nonce); err != ErrAuthenticationFailed {
		t.Fatalf("want ErrAuthenticationFailed, got %v", err)
	}
}

func TestDecryptWrongNonceFails(t *testing.T) {
	salt, _ := NewSalt()
	key, _ := DeriveKey("master", salt)

	ct, nonce, err := EncryptString("secret", key)
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	badNonce := make([]byte, len(nonce))
	copy(badNonce, nonce)
	badNonce[0] ^= 0xFF

	if _, err := Decrypt(ct, key, badNonce); err != ErrAuthenticationFailed {
		t.Fatalf("want ErrAuthenticationFailed, got %v", err)
	}
}

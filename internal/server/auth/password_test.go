package auth

import "testing"

func TestHashPassword_NotPlaintext(t *testing.T) {
	t.Parallel()

	const plain = "pw123456"
	hash, err := HashPassword(plain)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if hash == plain {
		t.Fatalf("digest must not equal the plaintext")
	}
	if len(hash) == 0 {
		t.Fatalf("expected non-empty digest")
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if !CheckPassword("pw123456", hash) {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Fatalf("expected non-matching password to fail")
	}
	if CheckPassword("pw123456", "not-a-bcrypt-hash") {
		t.Fatalf("expected malformed digest to fail")
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password must differ (random salt)")
	}
}

package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !strings.HasPrefix(hash, "pbkdf2_sha256$210000$") {
		t.Fatalf("unexpected hash format: %s", hash)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestHashPasswordUsesPerCredentialSalt(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash first: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("hash second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct hashes for the same password")
	}
	if !CheckPassword("same-password", first) || !CheckPassword("same-password", second) {
		t.Fatalf("expected both hashes to verify")
	}
}

func TestCheckPasswordAcceptsLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt hash: %v", err)
	}
	if !CheckPassword("admin123", string(legacy)) {
		t.Fatalf("expected bcrypt hash to verify")
	}
	if CheckPassword("admin124", string(legacy)) {
		t.Fatalf("expected wrong password to fail against bcrypt")
	}
}

func TestCheckPasswordRejectsMalformedHashes(t *testing.T) {
	for _, stored := range []string{
		"",
		"plain",
		"pbkdf2_sha256$abc$c2FsdA$a2V5",
		"pbkdf2_sha256$1000$$a2V5",
		"md5$1000$c2FsdA$a2V5",
	} {
		if CheckPassword("x", stored) {
			t.Fatalf("expected %q to be rejected", stored)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("abc123"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
	if err := ValidatePassword("abc12"); err == nil {
		t.Fatalf("expected short password to fail")
	}
	if err := ValidatePassword("      "); err == nil {
		t.Fatalf("expected blank password to fail")
	}
	if err := ValidatePassword(strings.Repeat("a", MaxPasswordLength+1)); err == nil {
		t.Fatalf("expected long password to fail")
	}
}

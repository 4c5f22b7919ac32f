package service

import (
	"strings"
	"testing"
)

// =============================================================================
// Password Validation Tests
// =============================================================================

func TestValidatePassword_MinimumLength(t *testing.T) {
	testCases := []struct {
		name     string
		password string
		valid    bool
	}{
		{"too short - 7 chars", "abcdef1", false},
		{"minimum - 8 chars", "abcdef12", true},
		{"longer - 12 chars", "abcdefgh1234", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected error for short password")
			}
		})
	}
}

func TestValidatePassword_MaximumLength(t *testing.T) {
	// 72 is the bcrypt limit
	longPassword := strings.Repeat("Aa1", 24) // 72 chars
	tooLong := strings.Repeat("Aa1", 25)      // 75 chars

	if err := validatePassword(longPassword); err != nil {
		t.Errorf("72 char password should be valid: %v", err)
	}

	if err := validatePassword(tooLong); err == nil {
		t.Error("73+ char password should be invalid")
	}
}

// =============================================================================
// Email Validation Tests
// =============================================================================

func TestValidateEmail(t *testing.T) {
	testCases := []struct {
		name  string
		email string
		valid bool
	}{
		{"empty", "", false},
		{"missing at", "elenidexample.gr", false},
		{"missing domain dot", "eleni@localhost", false},
		{"leading at", "@example.gr", false},
		{"trailing at", "eleni@", false},
		{"double at", "eleni@@example.gr", false},
		{"consecutive dots", "eleni..p@example.gr", false},
		{"too long", strings.Repeat("a", 250) + "@x.gr", false},
		{"valid", "eleni@example.gr", true},
		{"valid with plus", "eleni+adeia@example.gr", true},
		{"valid subdomain", "eleni@mail.example.gr", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateEmail(tc.email)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got error: %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected error for invalid email")
			}
		})
	}
}

// =============================================================================
// Session Token Tests
// =============================================================================

func TestGenerateSessionToken_Entropy(t *testing.T) {
	token, err := generateSessionToken()
	if err != nil {
		t.Fatalf("generateSessionToken: %v", err)
	}

	// 32 random bytes hex-encoded
	if len(token) != SessionTokenBytes*2 {
		t.Errorf("token length = %d, want %d", len(token), SessionTokenBytes*2)
	}

	other, err := generateSessionToken()
	if err != nil {
		t.Fatalf("generateSessionToken: %v", err)
	}
	if token == other {
		t.Error("two generated tokens should never collide")
	}
}

func TestHashSessionToken_Deterministic(t *testing.T) {
	a := hashSessionToken("some-token")
	b := hashSessionToken("some-token")
	c := hashSessionToken("other-token")

	if a != b {
		t.Error("hashing the same token twice must produce the same hash")
	}
	if a == c {
		t.Error("different tokens must produce different hashes")
	}
	if a == "some-token" {
		t.Error("hash must not equal the raw token")
	}

	// SHA-256 hex
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
}

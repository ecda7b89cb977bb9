package utils

import "testing"

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("payout-me-2026")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "payout-me-2026" || len(hash) < 50 {
		t.Errorf("HashPassword() returned %q, want a bcrypt hash", hash)
	}

	again, _ := HashPassword("payout-me-2026")
	if again == hash {
		t.Error("hashes of the same password should be salted differently")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, _ := HashPassword("secret1")

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct", "secret1", hash, true},
		{"wrong", "secret2", hash, false},
		{"case sensitive", "SECRET1", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", "secret1", "", false},
		{"not a hash", "secret1", "plaintext", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

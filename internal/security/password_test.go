package security_test

import (
	"testing"

	"github.com/rmoralesc/accounthub/internal/security"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	h := security.NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")

	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if hash == "secret1" {
		t.Fatalf("hash equals the plaintext")
	}

	if err := h.Check(hash, "secret1"); err != nil {
		t.Errorf("Check rejected the correct password: %v", err)
	}

	if err := h.Check(hash, "secret2"); err == nil {
		t.Errorf("Check accepted a wrong password")
	}
}

func TestCheckEmptyHashFails(t *testing.T) {
	// crud-created users have no credentials yet; login must fail cleanly
	h := security.NewHasher(bcrypt.MinCost)

	if err := h.Check("", "anything"); err == nil {
		t.Fatalf("Check accepted an empty hash")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
	}{
		{name: "below minimum", cost: 0},
		{name: "above maximum", cost: 99},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := security.NewHasher(tc.cost)

			hash, err := h.Hash("secret1")

			if err != nil {
				t.Fatalf("Hash returned error: %v", err)
			}

			cost, err := bcrypt.Cost([]byte(hash))

			if err != nil {
				t.Fatalf("could not read cost: %v", err)
			}

			if cost != bcrypt.DefaultCost {
				t.Errorf("got cost %d, want default %d", cost, bcrypt.DefaultCost)
			}
		})
	}
}

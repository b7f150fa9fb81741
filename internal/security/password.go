package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a single configurable work factor. Signup and
// password reset share the same cost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return Hasher{cost: cost}
}

// Hash hashes a plain text password with bcrypt.
func (h Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Check compares a bcrypt hash with a plaintext password.
func (h Hasher) Check(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// dummyHash is a bcrypt hash of an unguessable throwaway value. DummyCheck
// burns a comparable amount of CPU on requests for unknown accounts so the
// known/unknown paths cost the same.
var dummyHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("accounthub-timing-pad"), bcrypt.DefaultCost)

	if err != nil {
		panic(err)
	}

	return string(hash)
}()

func (h Hasher) DummyCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}

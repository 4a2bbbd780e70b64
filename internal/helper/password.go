package helper

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes credentials with bcrypt. The salt and cost travel
// inside the digest, and comparison is constant time.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{cost: cost}
}

func (h PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(b), nil
}

// Verify reports whether plain matches hashed. A malformed digest is an
// error, a mismatch is not.
func (h PasswordHasher) Verify(ctx context.Context, plain, hashed string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.New("stored password hash is malformed")
	}
}

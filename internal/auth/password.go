package auth

// WHY BCRYPT?
// bcrypt is deliberately slow and salts every hash, and the salt and cost
// are stored inside the hash string itself:
//
//	$2a$12$<22-char salt><31-char hash>
//	     ^^ cost: 2^12 rounds
//
// so the users table only needs one password_hash column.

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for production hashes (~250ms).
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit; longer input would be silently
// truncated, so it is rejected instead.
const maxPasswordBytes = 72

// ErrInvalidPassword means the password does not match the stored hash.
var ErrInvalidPassword = errors.New("auth: invalid password")

// PasswordService hashes and checks passwords. The cost is a field so tests
// can use bcrypt.MinCost.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with a custom cost.
// Never use it outside tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrInvalidPassword when
// it does not. An empty hash (account without a password, e.g. GitHub-only)
// never matches.
//
// The comparison is constant-time inside bcrypt.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if hash == "" {
		return ErrInvalidPassword
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

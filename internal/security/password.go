package security

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a bcrypt hash of the secret with a per-hash salt.
func HashPassword(secret string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// VerifyPassword reports whether secret matches hash. bcrypt's comparison is
// constant-time with respect to the hash output.
func VerifyPassword(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword produces the value stored in users.password_hash. cost comes
// from BCRYPT_COST; registration is the only caller.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks a login attempt against the stored hash. Any
// mismatch or malformed hash counts as a failed login.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

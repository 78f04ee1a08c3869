package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/scrypt"
)

const legacyPrefix = "scrypt$"

var (
	decoyOnce sync.Once
	decoyHash string
)

// DecoyHash is a bcrypt hash of a random secret at the default cost. Checking a
// password against it takes as long as a real check and never matches.
func DecoyHash() string {
	decoyOnce.Do(func() {
		secret, err := GenerateToken(tokenBytes)
		if err != nil {
			secret = "decoy"
		}
		decoyHash, _ = HashPassword(secret)
	})
	return decoyHash
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword checks password against a stored bcrypt hash or a legacy
// "scrypt$<salt>$<hex>" hash. legacy reports a match against the old format.
func VerifyPassword(password, stored string) (ok bool, legacy bool) {
	if strings.HasPrefix(stored, legacyPrefix) {
		return verifyScrypt(password, stored), true
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil, false
}

func verifyScrypt(password, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[1] == "" {
		return false
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got, err := scrypt.Key([]byte(password), []byte(parts[1]), 16384, 8, 1, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

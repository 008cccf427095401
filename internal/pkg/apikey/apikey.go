package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// Generate returns a random key of 32 hex characters.
func Generate() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Verifier checks a presented key against plain keys and bcrypt hashes.
type Verifier struct {
	plain  []string
	hashes []string
}

func NewVerifier(plain []string, hashes []string) *Verifier {
	return &Verifier{plain: plain, hashes: hashes}
}

func (v *Verifier) Enabled() bool {
	return len(v.plain) > 0 || len(v.hashes) > 0
}

func (v *Verifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	for _, p := range v.plain {
		if subtle.ConstantTimeCompare([]byte(p), []byte(key)) == 1 {
			return true
		}
	}
	for _, h := range v.hashes {
		if Compare(h, key) == nil {
			return true
		}
	}
	return false
}

// Fingerprint returns a short stable identifier for key, safe to log.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:6])
}

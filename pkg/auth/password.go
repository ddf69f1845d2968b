package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	HashAlgorithm     = "pbkdf2_sha256"
	DefaultIterations = 310000 // OWASP PBKDF2-HMAC-SHA256 guidance
	MinIterations     = 100000
	SaltLength        = 16 // 128 bits
	KeyLength         = 32 // 256 bits
	MinPasswordLen    = 12
	MaxPasswordLen    = 128
)

// PasswordValidationError holds validation error details (internal use only)
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "weak password: " + strings.Join(e.Errors, "; ")
}

// Common weak passwords to reject
var commonPasswords = map[string]bool{
	"password":               true,
	"password123":            true,
	"password123!":           true,
	"changethispassword123!": true,
	"administrator":          true,
	"admin123":               true,
	"letmein":                true,
	"welcome":                true,
	"qwertyuiop":             true,
	"123456789012":           true,
	"passw0rd":               true,
	"trustno1":               true,
}

// Hasher derives salted PBKDF2-HMAC-SHA256 hash records.
//
// Record format: pbkdf2_sha256$<iterations>$<base64 salt>$<base64 digest>
type Hasher struct {
	Iterations int
}

// NewHasher returns a Hasher, raising iterations to MinIterations if needed
func NewHasher(iterations int) *Hasher {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return &Hasher{Iterations: iterations}
}

// Hash generates a fresh random salt and returns the encoded hash record
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, h.Iterations, KeyLength, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		HashAlgorithm,
		h.Iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// HashPassword hashes with DefaultIterations
func HashPassword(password string) (string, error) {
	return NewHasher(DefaultIterations).Hash(password)
}

// HashLike hashes password with the same scheme and cost as reference, so
// verifying against the result costs what verifying against reference does.
// An unrecognised reference falls back to PBKDF2 at iterations.
func HashLike(password, reference string, iterations int) (string, error) {
	if strings.HasPrefix(reference, "$2") {
		cost, err := bcrypt.Cost([]byte(reference))
		if err != nil {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return "", fmt.Errorf("failed to hash password: %w", err)
		}
		return string(hash), nil
	}

	if parts := strings.Split(reference, "$"); len(parts) == 4 && parts[0] == HashAlgorithm {
		if n, err := strconv.Atoi(parts[1]); err == nil && n > 0 {
			return (&Hasher{Iterations: n}).Hash(password)
		}
	}

	return NewHasher(iterations).Hash(password)
}

// VerifyPassword reports whether password matches record.
// bcrypt records ($2a$, $2b$, $2y$) are accepted for pre-hashed credentials.
// A malformed record is a mismatch, never an error.
func VerifyPassword(password, record string) bool {
	if strings.HasPrefix(record, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(record), []byte(password)) == nil
	}

	parts := strings.Split(record, "$")
	if len(parts) != 4 || parts[0] != HashAlgorithm {
		return false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations < 1 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false
	}

	expected, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(expected) == 0 {
		return false
	}

	digest := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(digest, expected) == 1
}

// IsHashRecord reports whether s looks like a record VerifyPassword understands
func IsHashRecord(s string) bool {
	return strings.HasPrefix(s, HashAlgorithm+"$") || strings.HasPrefix(s, "$2")
}

// ValidatePassword enforces the admin password policy
func ValidatePassword(password string) error {
	errors := make([]string, 0)

	// Check length
	if len(password) < MinPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		errors = append(errors, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	// Check character requirements
	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		errors = append(errors, "must contain at least one uppercase letter")
	}
	if !hasLower {
		errors = append(errors, "must contain at least one lowercase letter")
	}
	if !hasDigit {
		errors = append(errors, "must contain at least one digit")
	}
	if !hasSpecial {
		errors = append(errors, "must contain at least one special character")
	}

	// Check against common passwords (case-insensitive)
	if commonPasswords[strings.ToLower(password)] {
		errors = append(errors, "is too common")
	}

	if len(errors) > 0 {
		return &PasswordValidationError{Errors: errors}
	}

	return nil
}

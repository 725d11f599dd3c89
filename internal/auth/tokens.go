package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SingleUseToken is the issued form of an invite or reset token. Plaintext
// goes into the email link; StoredForm is what lands in the database. Invite
// tokens are stored as-is; reset tokens only as a sha256 hash, matching their
// shorter TTL and higher sensitivity.
type SingleUseToken struct {
	Plaintext  string
	StoredForm string
	ExpiresAt  time.Time
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is not recoverable at this level
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// NewInviteToken issues an invite token valid for ttl (7 days by default).
func NewInviteToken(ttl time.Duration) SingleUseToken {
	token := randomHex(32)
	return SingleUseToken{
		Plaintext:  token,
		StoredForm: token,
		ExpiresAt:  time.Now().Add(ttl),
	}
}

// NewResetToken issues a password-reset token valid for ttl (10 minutes by
// default). Verification compares HashToken(candidate) with StoredForm.
func NewResetToken(ttl time.Duration) SingleUseToken {
	token := randomHex(32)
	return SingleUseToken{
		Plaintext:  token,
		StoredForm: HashToken(token),
		ExpiresAt:  time.Now().Add(ttl),
	}
}

func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// RandomPassword produces the throwaway password placed on invited users
// until they accept and choose their own.
func RandomPassword() string {
	return randomHex(20)
}

package store

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tunnelgate/gateway/internal/domain"
)

// keyClaims is embedded in every generated credential key so that a
// corrupted or hand-edited key fails signature verification before the
// Credential Store is even consulted.
type keyClaims struct {
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Tunnel string `json:"tunnel,omitempty"`
	jwt.RegisteredClaims
}

// KeyMinter issues and verifies opaque credential keys. Keys are a tier
// prefix ("orc_" or "wrk_") followed by a compact HMAC-signed JWT.
type KeyMinter struct {
	secret []byte
}

// NewKeyMinter creates a KeyMinter signing with the given secret. If
// secret is empty, a random one is generated (keys mint and verify
// consistently within the process but won't survive a restart with a
// different secret — callers that need durable keys should supply a
// persisted secret).
func NewKeyMinter(secret []byte) *KeyMinter {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(fmt.Sprintf("store: generating key minter secret: %v", err))
		}
	}
	return &KeyMinter{secret: secret}
}

// Mint generates a new opaque key for the given credential attributes.
func (m *KeyMinter) Mint(tier domain.Tier, name, tunnel string) (string, error) {
	prefix := "wrk_"
	if tier == domain.TierOrchestrator {
		prefix = "orc_"
	}

	nonce := make([]byte, 6)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	claims := keyClaims{
		Name:   name,
		Tier:   string(tier),
		Tunnel: tunnel,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
			ID:       base64.RawURLEncoding.EncodeToString(nonce),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing key: %w", err)
	}

	return prefix + signed, nil
}

// Verify checks that key was minted by this KeyMinter and has not been
// tampered with. It does not check revocation or the tier/tunnel recorded
// in the Credential Store — those are the Credential Store's job; this
// only guards against a hand-edited or forged key string reaching the
// store lookup at all.
func (m *KeyMinter) Verify(key string) bool {
	body := key
	switch {
	case len(key) > 4 && key[:4] == "orc_":
		body = key[4:]
	case len(key) > 4 && key[:4] == "wrk_":
		body = key[4:]
	default:
		return false
	}

	_, err := jwt.ParseWithClaims(body, &keyClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	return err == nil
}

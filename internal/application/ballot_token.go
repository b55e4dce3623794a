package application

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// BallotClaims is the state carried between ballot steps.
type BallotClaims struct {
	SessionID  string
	Email      string
	PositionID string
	ExpiresAt  time.Time
}

type ballotPayload struct {
	SessionID  string `json:"sid"`
	Email      string `json:"email,omitempty"`
	PositionID string `json:"pid"`
	ExpiresAt  int64  `json:"exp"`
}

// BallotTokenSigner issues and verifies short lived ballot tokens. A token is
// base64url(payload) "." base64url(mac) where mac is keyed BLAKE2b-256.
type BallotTokenSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewBallotTokenSigner derives the MAC key from secret.
func NewBallotTokenSigner(secret []byte, ttl time.Duration, now func() time.Time) (*BallotTokenSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("ballot token secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	key := blake2b.Sum256(secret)
	return &BallotTokenSigner{key: key[:], ttl: ttl, now: now}, nil
}

// Issue signs claims, stamping the expiry from the signer's TTL.
func (s *BallotTokenSigner) Issue(claims BallotClaims) (string, error) {
	payload, err := json.Marshal(ballotPayload{
		SessionID:  claims.SessionID,
		Email:      claims.Email,
		PositionID: claims.PositionID,
		ExpiresAt:  s.now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("encode ballot token: %w", err)
	}
	mac, err := s.mac(payload)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(mac), nil
}

// Verify checks the signature and expiry and returns the carried claims.
func (s *BallotTokenSigner) Verify(token string) (BallotClaims, error) {
	encodedPayload, encodedMAC, ok := strings.Cut(token, ".")
	if !ok {
		return BallotClaims{}, ErrInvalidBallotToken
	}
	payload, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return BallotClaims{}, ErrInvalidBallotToken
	}
	given, err := base64.RawURLEncoding.DecodeString(encodedMAC)
	if err != nil {
		return BallotClaims{}, ErrInvalidBallotToken
	}

	expected, err := s.mac(payload)
	if err != nil {
		return BallotClaims{}, err
	}
	if subtle.ConstantTimeCompare(given, expected) != 1 {
		return BallotClaims{}, ErrInvalidBallotToken
	}

	var decoded ballotPayload
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return BallotClaims{}, ErrInvalidBallotToken
	}
	expiresAt := time.Unix(decoded.ExpiresAt, 0).UTC()
	if !s.now().Before(expiresAt) {
		return BallotClaims{}, fmt.Errorf("%w: expired", ErrInvalidBallotToken)
	}

	return BallotClaims{
		SessionID:  decoded.SessionID,
		Email:      decoded.Email,
		PositionID: decoded.PositionID,
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *BallotTokenSigner) mac(payload []byte) ([]byte, error) {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return nil, fmt.Errorf("init ballot mac: %w", err)
	}
	h.Write(payload)
	return h.Sum(nil), nil
}

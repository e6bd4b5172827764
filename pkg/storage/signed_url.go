package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidGrant is returned for tampered or malformed download tokens.
	ErrInvalidGrant = errors.New("invalid download token")
	// ErrExpiredGrant is returned once a download token is past its expiry.
	ErrExpiredGrant = errors.New("download token expired")
)

// DownloadGrant is the payload carried by a signed download token.
type DownloadGrant struct {
	DocumentID string
	BlobName   string
	ExpiresAt  time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token granting access to one document blob until the TTL elapses.
func (s *SignedURLSigner) Sign(documentID, blobName string) (string, time.Time, error) {
	if documentID == "" || blobName == "" {
		return "", time.Time{}, fmt.Errorf("document id and blob name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	encodedName := base64.RawURLEncoding.EncodeToString([]byte(blobName))
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{documentID, exp, encodedName, s.sign(documentID, exp, encodedName)}, ".")
	return token, expiresAt, nil
}

// Verify checks the signature and expiry of a token and returns its grant.
func (s *SignedURLSigner) Verify(token string) (*DownloadGrant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrInvalidGrant
	}
	documentID, exp, encodedName, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(documentID, exp, encodedName)), []byte(signature)) {
		return nil, ErrInvalidGrant
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return nil, ErrInvalidGrant
	}
	rawName, err := base64.RawURLEncoding.DecodeString(encodedName)
	if err != nil {
		return nil, ErrInvalidGrant
	}
	grant := &DownloadGrant{DocumentID: documentID, BlobName: string(rawName), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(grant.ExpiresAt) {
		return nil, ErrExpiredGrant
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(documentID, exp, encodedName string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(documentID + "|" + exp + "|" + encodedName))
	return hex.EncodeToString(mac.Sum(nil))
}

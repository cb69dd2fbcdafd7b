// Package signer produces and checks certificate signatures.
//
// A signature is Ed25519 over the SHA-256 digest of a canonical JSON
// document of the certificate's identifying and displayed fields. The key is derived
// from a configured secret with HKDF so every replica signs identically.
// Stored signatures carry their key id: "<key_id>:<base64url>".
package signer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrUnknownKey         = errors.New("unknown signing key")
	ErrSignatureMismatch  = errors.New("signature does not match certificate")
)

// Content resolved certificate text.
type Content struct {
	Header string `json:"header"`
	Body   string `json:"body"`
	Footer string `json:"footer"`
}

// Payload the signed fields. Field order here is the canonical order.
// Everything a public lookup displays is covered.
type Payload struct {
	CertificateNumber string  `json:"certificate_number"`
	CandidateID       string  `json:"candidate_id"`
	CandidateName     string  `json:"candidate_name"`
	CourseID          string  `json:"course_id"`
	CourseName        string  `json:"course_name"`
	CourseCode        string  `json:"course_code"`
	IssueDate         string  `json:"issue_date"`
	ExpiryDate        string  `json:"expiry_date"` // "" = never expires
	Grade             string  `json:"grade"`
	Remarks           string  `json:"remarks"`
	Content           Content `json:"content"`
}

// Fields the certificate values a Payload is built from.
type Fields struct {
	Number        string
	CandidateID   string
	CandidateName string
	CourseID      string
	CourseName    string
	CourseCode    string
	IssueDate     time.Time
	ExpiryDate    *time.Time
	Grade         string
	Remarks       string
	Content       Content
}

// NewPayload normalises dates to UTC seconds.
func NewPayload(f Fields) Payload {
	p := Payload{
		CertificateNumber: f.Number,
		CandidateID:       f.CandidateID,
		CandidateName:     f.CandidateName,
		CourseID:          f.CourseID,
		CourseName:        f.CourseName,
		CourseCode:        f.CourseCode,
		IssueDate:         canonicalTime(f.IssueDate),
		Grade:             f.Grade,
		Remarks:           f.Remarks,
		Content:           f.Content,
	}
	if f.ExpiryDate != nil {
		p.ExpiryDate = canonicalTime(*f.ExpiryDate)
	}
	return p
}

func canonicalTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Digest is SHA-256 of the canonical encoding.
func (p Payload) Digest() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return sum[:], nil
}

// Signer signs with the active key and verifies against any known key.
type Signer struct {
	activeID string
	keys     map[string]ed25519.PrivateKey
}

// New derives the active key from secret. Retired keys that must still
// verify old certificates are added with AddKey.
func New(secret, keyID string) (*Signer, error) {
	s := &Signer{keys: make(map[string]ed25519.PrivateKey)}
	if err := s.AddKey(secret, keyID); err != nil {
		return nil, err
	}
	s.activeID = keyID
	return s, nil
}

// AddKey registers a verification key.
func (s *Signer) AddKey(secret, keyID string) error {
	if keyID == "" || strings.Contains(keyID, ":") {
		return fmt.Errorf("invalid key id %q", keyID)
	}
	if len(secret) < 32 {
		return errors.New("signing secret must be at least 32 bytes")
	}
	seed := make([]byte, ed25519.SeedSize)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("certhub/ed25519/"+keyID))
	if _, err := io.ReadFull(r, seed); err != nil {
		return fmt.Errorf("derive key: %w", err)
	}
	s.keys[keyID] = ed25519.NewKeyFromSeed(seed)
	return nil
}

// KeyID of the key new signatures use.
func (s *Signer) KeyID() string { return s.activeID }

// PublicKey of the active key, base64url, for out-of-band verification.
func (s *Signer) PublicKey() string {
	pub := s.keys[s.activeID].Public().(ed25519.PublicKey)
	return base64.RawURLEncoding.EncodeToString(pub)
}

// Sign returns "<key_id>:<base64url signature>".
func (s *Signer) Sign(p Payload) (string, error) {
	digest, err := p.Digest()
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(s.keys[s.activeID], digest)
	return s.activeID + ":" + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verify recomputes the digest and checks signature against it.
func (s *Signer) Verify(p Payload, signature string) error {
	keyID, encoded, ok := strings.Cut(signature, ":")
	if !ok || keyID == "" || encoded == "" {
		return ErrMalformedSignature
	}
	key, ok := s.keys[keyID]
	if !ok {
		return ErrUnknownKey
	}
	sig, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return ErrMalformedSignature
	}
	digest, err := p.Digest()
	if err != nil {
		return err
	}
	if !ed25519.Verify(key.Public().(ed25519.PublicKey), digest, sig) {
		return ErrSignatureMismatch
	}
	return nil
}

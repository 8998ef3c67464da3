// Package crypto is the decrypt boundary for stored member profile payloads.
//
// Profiles are sealed per member: the key for one member's payload is derived
// from the master key together with the member and group identity, so a
// payload cannot be opened under another member's identity. The boundary fails
// closed: an integrity failure returns ErrIntegrityCheck and never plaintext.
package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrIntegrityCheck indicates ciphertext failed authentication.
	ErrIntegrityCheck = errors.New("profile payload failed integrity check")
	// ErrEmptyMemberID indicates the member identity is required for key derivation.
	ErrEmptyMemberID = errors.New("member id is required")
	// ErrEmptyGroupID indicates the group identity is required for key derivation.
	ErrEmptyGroupID = errors.New("group id is required")
)

// Decrypter opens one member's sealed profile payload.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte, memberID, groupID string) ([]byte, error)
}

// Sealer seals and opens member profile payloads using AES-256-GCM with
// per-member derived keys.
type Sealer struct {
	masterKey []byte
}

// NewSealer builds a profile sealer from a master key.
func NewSealer(masterKey []byte) (*Sealer, error) {
	if len(masterKey) == 0 {
		return nil, fmt.Errorf("master key is required")
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Sealer{masterKey: key}, nil
}

// Seal encrypts one member's profile payload. The sealed format is
// nonce || ciphertext.
func (s *Sealer) Seal(ctx context.Context, plaintext []byte, memberID, groupID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aead, err := s.memberAEAD(memberID, groupID)
	if err != nil {
		return nil, err
	}

	// AES-GCM requires a unique nonce per encryption under the same key.
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return append(nonce, sealed...), nil
}

// Decrypt opens one member's sealed profile payload. Authentication failures
// return ErrIntegrityCheck.
func (s *Sealer) Decrypt(ctx context.Context, ciphertext []byte, memberID, groupID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	aead, err := s.memberAEAD(memberID, groupID)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrIntegrityCheck
	}
	nonce := ciphertext[:nonceSize]
	sealed := ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrIntegrityCheck
	}
	return plaintext, nil
}

func (s *Sealer) memberAEAD(memberID, groupID string) (cipher.AEAD, error) {
	if s == nil || len(s.masterKey) == 0 {
		return nil, fmt.Errorf("sealer is not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, ErrEmptyMemberID
	}
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, ErrEmptyGroupID
	}

	digest := sha256.New()
	digest.Write(s.masterKey)
	digest.Write([]byte("\x00"))
	digest.Write([]byte(memberID))
	digest.Write([]byte("\x00"))
	digest.Write([]byte(groupID))
	key := digest.Sum(nil)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}

var _ Decrypter = (*Sealer)(nil)

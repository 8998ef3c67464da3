package crypto

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestSealThenDecryptRoundTrip(t *testing.T) {
	sealer := newTestSealer(t)
	plaintext := []byte(`{"member_id":"m1"}`)

	sealed, err := sealer.Seal(context.Background(), plaintext, "m1", "g1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	opened, err := sealer.Decrypt(context.Background(), sealed, "m1", "g1")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(opened, plaintext) {
		t.Fatalf("plaintext = %q, want %q", opened, plaintext)
	}
}

func TestDecryptWrongMemberFailsClosed(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal(context.Background(), []byte("payload"), "m1", "g1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := sealer.Decrypt(context.Background(), sealed, "m2", "g1"); !errors.Is(err, ErrIntegrityCheck) {
		t.Fatalf("wrong member err = %v, want ErrIntegrityCheck", err)
	}
	if _, err := sealer.Decrypt(context.Background(), sealed, "m1", "g2"); !errors.Is(err, ErrIntegrityCheck) {
		t.Fatalf("wrong group err = %v, want ErrIntegrityCheck", err)
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal(context.Background(), []byte("payload"), "m1", "g1")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := sealer.Decrypt(context.Background(), sealed, "m1", "g1"); !errors.Is(err, ErrIntegrityCheck) {
		t.Fatalf("tampered err = %v, want ErrIntegrityCheck", err)
	}
}

func TestDecryptTruncatedCiphertext(t *testing.T) {
	sealer := newTestSealer(t)

	if _, err := sealer.Decrypt(context.Background(), []byte("short"), "m1", "g1"); !errors.Is(err, ErrIntegrityCheck) {
		t.Fatalf("truncated err = %v, want ErrIntegrityCheck", err)
	}
}

func TestSealRequiresIdentity(t *testing.T) {
	sealer := newTestSealer(t)

	if _, err := sealer.Seal(context.Background(), []byte("p"), "", "g1"); !errors.Is(err, ErrEmptyMemberID) {
		t.Fatalf("empty member err = %v, want ErrEmptyMemberID", err)
	}
	if _, err := sealer.Seal(context.Background(), []byte("p"), "m1", ""); !errors.Is(err, ErrEmptyGroupID) {
		t.Fatalf("empty group err = %v, want ErrEmptyGroupID", err)
	}
}

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	sealer, err := NewSealer([]byte("test-master-key"))
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	return sealer
}

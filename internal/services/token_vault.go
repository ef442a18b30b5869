package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"shopfront/internal/repos"
)

const nonceSize = 24

// TokenVault keeps the session's bearer token sealed in the jwtToken slot.
type TokenVault struct {
	Slots repos.SlotStore
	key   [32]byte
}

func NewTokenVault(slots repos.SlotStore, secret string) *TokenVault {
	v := &TokenVault{Slots: slots}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("shopfront token vault"))
	if _, err := io.ReadFull(kdf, v.key[:]); err != nil {
		panic(err) // hkdf over sha256 cannot run short of 32 bytes
	}
	return v
}

func (v *TokenVault) Store(ctx context.Context, sessionID, token string) error {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, &v.key)
	return v.Slots.Put(ctx, sessionID, repos.SlotToken, sealed)
}

// Load returns the stored token, or "" when there is none. A slot that does
// not open under the current key yields ErrCorruptSlot.
func (v *TokenVault) Load(ctx context.Context, sessionID string) (string, error) {
	raw, err := v.Slots.Get(ctx, sessionID, repos.SlotToken)
	if errors.Is(err, repos.ErrSlotEmpty) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(raw) < nonceSize+secretbox.Overhead {
		return "", &CorruptSlotError{Slots: []string{repos.SlotToken}, Cause: fmt.Errorf("sealed token too short (%d bytes)", len(raw))}
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	tok, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", &CorruptSlotError{Slots: []string{repos.SlotToken}, Cause: errors.New("sealed token failed authentication")}
	}
	return string(tok), nil
}

func (v *TokenVault) Clear(ctx context.Context, sessionID string) error {
	return v.Slots.Delete(ctx, sessionID, repos.SlotToken)
}

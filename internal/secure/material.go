// Package secure keeps private key material encrypted in memory for the
// lifetime of the renewal process.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// KeyMaterial wraps a memguard.Enclave holding PEM private key bytes.
// The plaintext only exists inside a locked buffer between Open and the
// caller's Destroy, which keeps the key off swap and out of core dumps
// for everything but the actual upload call.
type KeyMaterial struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewKeyMaterial seals key bytes into a protected enclave. The caller
// should zero its own copy afterwards.
func NewKeyMaterial(pemKey []byte) *KeyMaterial {
	return &KeyMaterial{
		enclave: memguard.NewEnclave(pemKey),
	}
}

// Open decrypts the key into a locked buffer. The caller MUST call
// Destroy() on the returned buffer as soon as the bytes have been handed
// to the cloud SDK.
func (k *KeyMaterial) Open() (*memguard.LockedBuffer, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.destroyed {
		return nil, errors.New("key material has been destroyed")
	}
	return k.enclave.Open()
}

// Destroy marks the material as unusable. Idempotent. The encrypted
// enclave itself needs no explicit wipe.
func (k *KeyMaterial) Destroy() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.destroyed = true
}

// Destroyed reports whether Destroy has been called.
func (k *KeyMaterial) Destroyed() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.destroyed
}

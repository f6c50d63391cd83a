// Package session implements the client-side auth gateway: login,
// registration, token storage, and transparent refresh of expired
// access tokens.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"

	apperrors "tradelog/internal/errors"
	"tradelog/internal/models"
)

const (
	vaultFileName = "session.enc"
	keyFileName   = "session.key"

	pbkdf2Iterations = 4096
	saltSize         = 16
)

// Vault stores the token pair encrypted at rest. The encryption key is
// derived from a random secret kept in a separate 0600 file, so a
// leaked vault file alone is not enough to recover the tokens.
type Vault struct {
	path    string
	keyPath string
	log     zerolog.Logger
}

// NewVault creates a vault rooted at dir.
func NewVault(dir string, log zerolog.Logger) *Vault {
	return &Vault{
		path:    filepath.Join(dir, vaultFileName),
		keyPath: filepath.Join(dir, keyFileName),
		log:     log.With().Str("component", "vault").Logger(),
	}
}

// Save encrypts and persists the session.
func (v *Vault) Save(session *models.Session) error {
	secret, err := v.loadOrCreateSecret()
	if err != nil {
		return apperrors.Wrap(err, "loading vault secret")
	}

	plaintext, err := json.Marshal(session)
	if err != nil {
		return apperrors.Wrap(err, "encoding session")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return apperrors.Wrap(err, "generating salt")
	}

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return apperrors.Wrap(err, "generating nonce")
	}

	// Layout: salt || nonce || ciphertext.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	payload := append(append(salt, nonce...), sealed...)

	if err := os.MkdirAll(filepath.Dir(v.path), 0o700); err != nil {
		return apperrors.Wrap(err, "creating vault directory")
	}
	if err := os.WriteFile(v.path, payload, 0o600); err != nil {
		return apperrors.Wrap(err, "writing vault file")
	}
	return nil
}

// Load decrypts the stored session. A missing vault returns (nil, nil);
// a corrupt or undecryptable vault returns an error so the caller can
// fall back to the anonymous state.
func (v *Vault) Load() (*models.Session, error) {
	payload, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "reading vault file")
	}

	secret, err := os.ReadFile(v.keyPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrVaultLocked, "vault key unavailable")
	}

	if len(payload) < saltSize {
		return nil, apperrors.Wrap(apperrors.ErrVaultLocked, "vault file truncated")
	}
	salt, rest := payload[:saltSize], payload[saltSize:]

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, apperrors.Wrap(apperrors.ErrVaultLocked, "vault file truncated")
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrVaultLocked, "decrypting vault")
	}

	var session models.Session
	if err := json.Unmarshal(plaintext, &session); err != nil {
		return nil, apperrors.Wrap(err, "decoding session")
	}
	return &session, nil
}

// Clear removes the stored session. Missing files are not an error.
func (v *Vault) Clear() error {
	if err := os.Remove(v.path); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(err, "removing vault file")
	}
	return nil
}

func (v *Vault) loadOrCreateSecret() ([]byte, error) {
	secret, err := os.ReadFile(v.keyPath)
	if err == nil && len(secret) > 0 {
		return secret, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(v.keyPath), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(v.keyPath, secret, 0o600); err != nil {
		return nil, err
	}
	return secret, nil
}

func newGCM(secret, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(secret, salt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}

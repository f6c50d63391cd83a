package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradelog/internal/models"
)

func TestVaultRoundTrip(t *testing.T) {
	v := NewVault(t.TempDir(), zerolog.Nop())

	sess := &models.Session{
		Token:        "tok",
		RefreshToken: "ref",
		UserID:       "u1",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := v.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := v.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.Token != "tok" || loaded.RefreshToken != "ref" || loaded.UserID != "u1" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestVaultMissingReturnsNil(t *testing.T) {
	v := NewVault(t.TempDir(), zerolog.Nop())
	loaded, err := v.Load()
	if err != nil {
		t.Fatalf("Load on empty vault: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil session, got %+v", loaded)
	}
}

func TestVaultCorruptFileErrors(t *testing.T) {
	dir := t.TempDir()
	v := NewVault(dir, zerolog.Nop())

	if err := v.Save(&models.Session{Token: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, vaultFileName), []byte("garbage"), 0o600); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	if _, err := v.Load(); err == nil {
		t.Error("corrupt vault should not decode")
	}
}

func TestVaultFilePermissions(t *testing.T) {
	dir := t.TempDir()
	v := NewVault(dir, zerolog.Nop())

	if err := v.Save(&models.Session{Token: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	for _, name := range []string{vaultFileName, keyFileName} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("%s permissions = %o, want 600", name, perm)
		}
	}
}

func TestVaultClear(t *testing.T) {
	v := NewVault(t.TempDir(), zerolog.Nop())
	if err := v.Save(&models.Session{Token: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := v.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	loaded, err := v.Load()
	if err != nil || loaded != nil {
		t.Errorf("after clear: session=%+v err=%v", loaded, err)
	}
	// Clearing twice is fine.
	if err := v.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

package prefs_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sebas/incallcore/internal/incall/prefs"
)

func exerciseStore(t *testing.T, s prefs.Store) {
	t.Helper()
	ctx := context.Background()

	v, err := s.Bool(ctx, prefs.KeyPermissionInfoDialogShown, false)
	if err != nil {
		t.Fatalf("Bool() error = %v", err)
	}
	if v {
		t.Fatal("expected default false for unset key")
	}

	if err := s.SetBool(ctx, prefs.KeyPermissionInfoDialogShown, true); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	v, err = s.Bool(ctx, prefs.KeyPermissionInfoDialogShown, false)
	if err != nil || !v {
		t.Fatalf("Bool() = %v, %v, want true", v, err)
	}

	if err := s.SetBool(ctx, prefs.KeyPermissionInfoDialogShown, false); err != nil {
		t.Fatalf("SetBool() overwrite error = %v", err)
	}
	v, _ = s.Bool(ctx, prefs.KeyPermissionInfoDialogShown, true)
	if v {
		t.Fatal("overwrite did not persist")
	}
}

func TestMemoryStore(t *testing.T) {
	s := prefs.NewMemory()
	exerciseStore(t, s)

	_ = s.Close()
	if err := s.SetBool(context.Background(), "k", true); !errors.Is(err, prefs.ErrClosed) {
		t.Errorf("SetBool() after close error = %v, want ErrClosed", err)
	}
}

func TestSQLiteStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "incall.db")
	ctx := context.Background()

	s, err := prefs.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	exerciseStore(t, s)
	if err := s.SetBool(ctx, "kept", true); err != nil {
		t.Fatalf("SetBool() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := prefs.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	v, err := reopened.Bool(ctx, "kept", false)
	if err != nil || !v {
		t.Errorf("Bool(kept) = %v, %v, want true", v, err)
	}
}

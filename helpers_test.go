package authcore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avelov/authcore/registry"
)

// fakeClock is a settable time source shared by a test and its engine.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeDirectory is an in-memory UserDirectory. It hands out copies so engine
// mutations only become visible once Save runs, the way a real directory
// behaves.
type fakeDirectory struct {
	mu       sync.Mutex
	byID     map[string]*CredentialRecord
	saves    int
	failSave bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byID: make(map[string]*CredentialRecord)}
}

func cloneRecord(rec *CredentialRecord) *CredentialRecord {
	out := *rec
	out.PasswordKey = append([]byte(nil), rec.PasswordKey...)
	out.TwoFactorSecret = append([]byte(nil), rec.TwoFactorSecret...)
	out.Roles = append([]string(nil), rec.Roles...)
	if rec.LockoutEnd != nil {
		end := *rec.LockoutEnd
		out.LockoutEnd = &end
	}
	if rec.LastLoginAt != nil {
		at := *rec.LastLoginAt
		out.LastLoginAt = &at
	}
	return &out
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*CredentialRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, rec := range d.byID {
		if rec.Email == email {
			return cloneRecord(rec), nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (*CredentialRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("id %s: %w", id, ErrUserNotFound)
	}
	return cloneRecord(rec), nil
}

func (d *fakeDirectory) Save(_ context.Context, rec *CredentialRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSave {
		return errors.New("directory down")
	}
	d.saves++
	d.byID[rec.ID] = cloneRecord(rec)
	return nil
}

func (d *fakeDirectory) get(t *testing.T, id string) *CredentialRecord {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.byID[id]
	if !ok {
		t.Fatalf("record %s missing from directory", id)
	}
	return cloneRecord(rec)
}

func (d *fakeDirectory) saveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}

var testSigningSecret = []byte("0123456789abcdef0123456789abcdef")

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.SigningSecret = testSigningSecret
	cfg.Token.Issuer = "authcore-test"
	return cfg
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *fakeDirectory, *registry.Memory, *fakeClock) {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newFakeDirectory()
	store := registry.NewMemory(time.Duration(cfg.Refresh.ExpirationDays) * 24 * time.Hour)
	clk := newFakeClock()

	engine, err := New().
		WithConfig(cfg).
		WithDirectory(dir).
		WithRegistry(store).
		WithClock(clk.Now).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return engine, dir, store, clk
}

// seedUser registers a user through the engine's credential factory and
// plants it in the directory.
func seedUser(t *testing.T, e *Engine, dir *fakeDirectory, id, email, pw string) *CredentialRecord {
	t.Helper()
	rec, err := e.NewCredential(id, email, "Test User", pw, []string{"member"})
	if err != nil {
		t.Fatalf("new credential failed: %v", err)
	}
	if err := dir.Save(context.Background(), rec); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	return rec
}

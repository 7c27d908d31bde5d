package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
)

type testLogger struct {
	mu     sync.Mutex
	infos  []string
	warns  []string
	errors []string
}

func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *testLogger) hasInfo(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.infos {
		if m == msg {
			return true
		}
	}
	return false
}

type fakeMigrator struct {
	upErr      error
	stepsErr   error
	steps      int
	version    uint
	dirty      bool
	versionErr error
}

func (m *fakeMigrator) Up() error { return m.upErr }

func (m *fakeMigrator) Steps(n int) error {
	m.steps = n
	return m.stepsErr
}

func (m *fakeMigrator) Version() (uint, bool, error) {
	return m.version, m.dirty, m.versionErr
}

func (m *fakeMigrator) Close() (error, error) {
	return nil, nil
}

type blockingMigrator struct {
	fakeMigrator
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func newBlockingMigrator() *blockingMigrator {
	return &blockingMigrator{closeCh: make(chan struct{})}
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator constructors for the duration of the test.
func stubFactories(t *testing.T, newMigrator func(Source) (migrator, error)) {
	t.Helper()

	origDriverFactory := driverFactory
	origMigratorFactory := migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriverFactory
		migratorFactory = origMigratorFactory
	})

	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		if cfg.MigrationsTable == "" {
			t.Fatalf("expected migrations table to be defaulted")
		}
		return nil, nil
	}
	migratorFactory = func(src Source, _ database.Driver) (migrator, error) {
		return newMigrator(src)
	}
}

func TestUp_NilDB(t *testing.T) {
	if err := Up(context.Background(), nil, Config{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestUp_ContextAlreadyCancelled_ReturnsCtxErr(t *testing.T) {
	called := atomic.Bool{}
	stubFactories(t, func(Source) (migrator, error) {
		called.Store(true)
		return &fakeMigrator{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called.Load() {
		t.Fatalf("expected no migrator creation when ctx already cancelled")
	}
}

func TestUp_ContextDeadlineExceeded_ReturnsCtxErr_AndCloses(t *testing.T) {
	block := newBlockingMigrator()
	stubFactories(t, func(Source) (migrator, error) { return block, nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{Dir: t.TempDir()})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if !block.closed.Load() {
		t.Fatalf("expected migrator.Close to be attempted on ctx cancellation")
	}
}

func TestUp_ErrNoChange_ReturnsNil(t *testing.T) {
	logger := &testLogger{}
	stubFactories(t, func(Source) (migrator, error) {
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !logger.hasInfo("No migrations to apply") {
		t.Fatalf("expected 'No migrations to apply' log")
	}
}

func TestUp_Success_LogsApplied(t *testing.T) {
	logger := &testLogger{}
	stubFactories(t, func(Source) (migrator, error) { return &fakeMigrator{}, nil })

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir(), Logger: logger}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !logger.hasInfo("Migrations applied successfully") {
		t.Fatalf("expected 'Migrations applied successfully' log")
	}
}

func TestUp_WrapsMigrationError(t *testing.T) {
	stubFactories(t, func(Source) (migrator, error) {
		return &fakeMigrator{upErr: errors.New("syntax error at or near")}, nil
	})

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "migrations: up") {
		t.Fatalf("expected wrapped up error, got %v", err)
	}
}

func TestUp_DefaultsToEmbeddedSource(t *testing.T) {
	var got Source
	stubFactories(t, func(src Source) (migrator, error) {
		got = src
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Driver == nil || got.URL != "" {
		t.Fatalf("expected embedded source driver, got %+v", got)
	}
	if got.String() != "embedded" {
		t.Fatalf("expected embedded source name, got %q", got.String())
	}
}

func TestEmbeddedSchema_HasPairedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embedded, embeddedRoot)
	if err != nil {
		t.Fatalf("read embedded schema: %v", err)
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected matching up/down migrations, got %d up and %d down", ups, downs)
	}

	create, err := fs.ReadFile(embedded, embeddedRoot+"/000001_create_waitlist.up.sql")
	if err != nil {
		t.Fatalf("read create migration: %v", err)
	}
	if !strings.Contains(string(create), "idx_waitlist_email") {
		t.Fatalf("expected unique email index in create migration")
	}
}

func TestUp_BuildsFileSourceURL(t *testing.T) {
	tmp := t.TempDir()
	var got Source
	stubFactories(t, func(src Source) (migrator, error) {
		got = src
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: tmp}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	abs, _ := filepath.Abs(tmp)
	expected := (&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(abs),
	}).String()

	if got.URL != expected {
		t.Fatalf("expected sourceURL %q, got %q", expected, got.URL)
	}
}

func TestUp_HandlesPathsWithSpecialCharacters(t *testing.T) {
	tmp := t.TempDir()
	dirWithSpaces := filepath.Join(tmp, "my migrations dir")
	if err := os.MkdirAll(dirWithSpaces, 0755); err != nil {
		t.Fatalf("failed to create test dir: %v", err)
	}

	var got Source
	stubFactories(t, func(src Source) (migrator, error) {
		got = src
		return &fakeMigrator{upErr: migrate.ErrNoChange}, nil
	})

	if err := Up(context.Background(), &sql.DB{}, Config{Dir: dirWithSpaces}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	parsedURL, err := url.Parse(got.URL)
	if err != nil {
		t.Fatalf("sourceURL is not a valid URL: %v", err)
	}
	if parsedURL.Scheme != "file" {
		t.Fatalf("expected scheme 'file', got %q", parsedURL.Scheme)
	}

	abs, _ := filepath.Abs(dirWithSpaces)
	if parsedURL.Path != filepath.ToSlash(abs) {
		t.Fatalf("expected path %q, got %q", filepath.ToSlash(abs), parsedURL.Path)
	}
}

func TestUp_MigratorInitError(t *testing.T) {
	stubFactories(t, func(Source) (migrator, error) { return nil, errors.New("boom") })

	err := Up(context.Background(), &sql.DB{}, Config{Dir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "migrations: init") {
		t.Fatalf("expected wrapped init error, got %v", err)
	}
}

func TestDown_StepsBackwards(t *testing.T) {
	fake := &fakeMigrator{}
	stubFactories(t, func(Source) (migrator, error) { return fake, nil })

	if err := Down(context.Background(), &sql.DB{}, Config{}, 2); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if fake.steps != -2 {
		t.Fatalf("expected Steps(-2), got Steps(%d)", fake.steps)
	}
}

func TestDown_RejectsNonPositiveSteps(t *testing.T) {
	if err := Down(context.Background(), &sql.DB{}, Config{}, 0); err == nil {
		t.Fatalf("expected error for zero steps")
	}
}

func TestCurrentStatus(t *testing.T) {
	stubFactories(t, func(Source) (migrator, error) {
		return &fakeMigrator{version: 2, dirty: true}, nil
	})

	status, err := CurrentStatus(context.Background(), &sql.DB{}, Config{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if status.Version != 2 || !status.Dirty {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestCurrentStatus_NoMigrationsYet(t *testing.T) {
	stubFactories(t, func(Source) (migrator, error) {
		return &fakeMigrator{versionErr: migrate.ErrNilVersion}, nil
	})

	status, err := CurrentStatus(context.Background(), &sql.DB{}, Config{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if status.Version != 0 || status.Dirty {
		t.Fatalf("expected zero status, got %+v", status)
	}
}

package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

type auditEntry struct {
	actorID, action, entityID string
}

type fakeAudit struct{ entries []auditEntry }

func (a *fakeAudit) Log(_ context.Context, actorID, action, _, entityID, _ string, _ ...core.DBExecutor) error {
	a.entries = append(a.entries, auditEntry{actorID, action, entityID})
	return nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) (*Service, *fakeAudit, *core.Config) {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "tulong.db")
	if err := os.WriteFile(dbPath, []byte("live database"), 0o644); err != nil {
		t.Fatal(err)
	}

	conf := &core.Config{BackupDir: filepath.Join(dir, "backups")}
	conf.Database.Engine = "sqlite3"
	conf.Database.Path = dbPath

	auditLog := &fakeAudit{}
	return NewService(auditLog, nopLogger{}, conf), auditLog, conf
}

func TestService_Create(t *testing.T) {
	svc, auditLog, conf := setup(t)
	ctx := context.Background()

	snap, err := svc.Create(ctx, "before-cleanup", "admin-1")
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if snap.Name != "before-cleanup" {
		t.Errorf("Create() name = %s, want before-cleanup", snap.Name)
	}
	data, err := os.ReadFile(filepath.Join(conf.BackupDir, "before-cleanup.db"))
	if err != nil {
		t.Fatalf("reading backup file failed, %v", err)
	}
	if string(data) != "live database" {
		t.Errorf("backup content = %q, want the database file copy", data)
	}
	if len(auditLog.entries) != 1 || auditLog.entries[0].action != "backup.create" {
		t.Errorf("audit entries = %+v, want one backup.create", auditLog.entries)
	}
}

func TestService_Create_defaultName(t *testing.T) {
	svc, _, _ := setup(t)

	core.NowFunc = func() time.Time { return time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC) }
	defer func() { core.NowFunc = time.Now }()

	snap, err := svc.Create(context.Background(), "", "admin-1")
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if snap.Name != "backup-20260314-150926" {
		t.Errorf("Create() name = %s, want backup-20260314-150926", snap.Name)
	}
}

func TestService_Create_rejectsBadNames(t *testing.T) {
	svc, _, _ := setup(t)

	for _, name := range []string{"../escape", "a/b", "white space"} {
		if _, err := svc.Create(context.Background(), name, "admin-1"); err == nil {
			t.Errorf("Create(%q) accepted an unsafe name", name)
		}
	}
}

func TestService_Create_requiresFileEngine(t *testing.T) {
	svc, _, conf := setup(t)
	conf.Database.Engine = "postgres"

	_, err := svc.Create(context.Background(), "nope", "admin-1")
	if _, ok := err.(*core.ValidationError); !ok {
		t.Errorf("Create() on postgres error = %v, want ValidationError", err)
	}
}

func TestService_Restore(t *testing.T) {
	svc, auditLog, conf := setup(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "known-good", "admin-1"); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if err := os.WriteFile(conf.Database.Path, []byte("corrupted"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := svc.Restore(ctx, "known-good", "admin-1"); err != nil {
		t.Fatalf("Restore() failed, %v", err)
	}
	data, err := os.ReadFile(conf.Database.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "live database" {
		t.Errorf("restored content = %q, want the snapshot copy", data)
	}

	// the corrupted state was snapshotted before restoring
	snaps, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() failed, %v", err)
	}
	var preRestore bool
	for _, s := range snaps {
		if len(s.Name) > len("pre-restore-") && s.Name[:len("pre-restore-")] == "pre-restore-" {
			preRestore = true
		}
	}
	if !preRestore {
		t.Errorf("List() = %+v, want a pre-restore snapshot", snaps)
	}

	var restoreLogged, systemSnapshot bool
	for _, e := range auditLog.entries {
		if e.action == "backup.restore" {
			restoreLogged = true
		}
		if e.action == "backup.create" && e.actorID == audit.ActorSystem {
			systemSnapshot = true
		}
	}
	if !restoreLogged || !systemSnapshot {
		t.Errorf("audit entries = %+v, want backup.restore and a system backup.create", auditLog.entries)
	}
}

func TestService_Restore_notFound(t *testing.T) {
	svc, _, _ := setup(t)

	if err := svc.Restore(context.Background(), "missing", "admin-1"); err != ErrNotFound {
		t.Errorf("Restore() error = %v, want %v", err, ErrNotFound)
	}
}

func TestService_List(t *testing.T) {
	svc, _, conf := setup(t)
	ctx := context.Background()

	// empty (directory does not exist yet)
	snaps, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() failed, %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("List() = %+v, want empty", snaps)
	}

	if _, err = svc.Create(ctx, "first", "admin-1"); err != nil {
		t.Fatal(err)
	}
	if _, err = svc.Create(ctx, "second", "admin-1"); err != nil {
		t.Fatal(err)
	}
	// non-snapshot files are ignored
	if err = os.WriteFile(filepath.Join(conf.BackupDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	snaps, err = svc.List(ctx)
	if err != nil {
		t.Fatalf("List() failed, %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("List() returned %d snapshots, want 2", len(snaps))
	}
}

package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/tulongph/tulong/core"
	"github.com/tulongph/tulong/core/audit"
)

var (
	// errors
	ErrNotFound = errors.New("backup not found")

	nameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

type (
	// Snapshot is one backup file in the backup directory.
	Snapshot struct {
		Name      string    `json:"name"`
		Size      int64     `json:"size"`
		CreatedAt time.Time `json:"created_at"`
	}

	ServiceInterface interface {
		Create(ctx context.Context, name, actorID string) (Snapshot, error)
		Restore(ctx context.Context, name, actorID string) error
		List(ctx context.Context) ([]Snapshot, error)
	}

	// Service copies the database file to and from the backup directory. It is
	// a file-system shell operation; only file-based engines support it.
	Service struct {
		audit  audit.Logger
		logger core.Logger
		conf   *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(auditLog audit.Logger, logger core.Logger, conf *core.Config) *Service {
	return &Service{audit: auditLog, logger: logger, conf: conf}
}

// Create snapshots the database file under the given name. The name is
// sanitized to a single path element; the stored file gets a .db suffix.
func (svc *Service) Create(ctx context.Context, name, actorID string) (Snapshot, error) {
	if err := svc.checkEngine(); err != nil {
		return Snapshot{}, err
	}
	name = core.CleanString(name)
	if name == "" {
		name = "backup-" + core.NowFunc().Format("20060102-150405")
	}
	if !nameRe.MatchString(name) {
		return Snapshot{}, core.NewValidationError(nil,
			core.FieldError{Field: "name", Error: "only letters, digits, '.', '_' and '-' are allowed"})
	}

	if err := os.MkdirAll(svc.conf.BackupDir, 0o755); err != nil {
		return Snapshot{}, errors.Wrap(err, "creating backup dir")
	}
	dst := filepath.Join(svc.conf.BackupDir, name+".db")
	if err := copyFile(svc.conf.Database.Path, dst); err != nil {
		return Snapshot{}, errors.Wrap(err, "copying database file")
	}

	info, err := os.Stat(dst)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "stating backup file")
	}
	if err = svc.audit.Log(ctx, actorID, "backup.create", "backup", name, dst); err != nil {
		return Snapshot{}, errors.Wrap(err, "logging backup creation")
	}
	return Snapshot{Name: name, Size: info.Size(), CreatedAt: info.ModTime().UTC()}, nil
}

// Restore replaces the database file with the named snapshot, taking an
// automatic pre-restore snapshot first.
func (svc *Service) Restore(ctx context.Context, name, actorID string) error {
	if err := svc.checkEngine(); err != nil {
		return err
	}
	name = core.CleanString(name)
	if !nameRe.MatchString(name) {
		return core.NewValidationError(nil,
			core.FieldError{Field: "name", Error: "only letters, digits, '.', '_' and '-' are allowed"})
	}

	src := filepath.Join(svc.conf.BackupDir, name+".db")
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return ErrNotFound
	} else if err != nil {
		return errors.Wrap(err, "stating backup file")
	}

	preName := "pre-restore-" + core.NowFunc().Format("20060102-150405")
	if _, err := svc.Create(ctx, preName, audit.ActorSystem); err != nil {
		return errors.Wrap(err, "taking pre-restore snapshot")
	}

	if err := copyFile(src, svc.conf.Database.Path); err != nil {
		return errors.Wrap(err, "restoring database file")
	}
	return svc.audit.Log(ctx, actorID, "backup.restore", "backup", name,
		fmt.Sprintf("pre-restore snapshot: %s", preName))
}

// List returns the stored snapshots, newest first.
func (svc *Service) List(ctx context.Context) ([]Snapshot, error) {
	entries, err := os.ReadDir(svc.conf.BackupDir)
	if os.IsNotExist(err) {
		return []Snapshot{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "reading backup dir")
	}

	snaps := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".db" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			svc.logger.Error(fmt.Sprintf("stating backup %s: %v", e.Name(), err), err)
			continue
		}
		snaps = append(snaps, Snapshot{
			Name:      e.Name()[:len(e.Name())-len(".db")],
			Size:      info.Size(),
			CreatedAt: info.ModTime().UTC(),
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })
	return snaps, nil
}

func (svc *Service) checkEngine() error {
	if svc.conf.Database.Engine != "sqlite3" {
		return core.NewValidationError(
			errors.Errorf("backups are only supported on file-based databases (engine: %s)", svc.conf.Database.Engine))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

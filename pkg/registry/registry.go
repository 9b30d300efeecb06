// Package registry tracks packaged photon archives on the local machine. Each
// saved archive has exactly one record; the archive file is always written
// before its record and the record is always deleted before its file.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/quatton/photon/pkg/db"
	"github.com/quatton/photon/pkg/db/models"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
	"github.com/uptrace/bun"
)

// Record is one saved version of a photon.
type Record = models.Photon

const (
	lockFile      = "registry.lock"
	lockRetry     = 50 * time.Millisecond
	DefaultMaxAge = time.Hour
)

type Registry struct {
	db   *bun.DB
	dir  string
	lock *flock.Flock
	log  *qlog.Logger

	// shared is set when the database is reachable from other machines, so
	// records may point at archives that live elsewhere.
	shared bool
}

type Option func(*Registry)

func WithLogger(log *qlog.Logger) Option {
	return func(r *Registry) {
		r.log = log
	}
}

// Open connects to the registry database, applies migrations and removes
// stale temporary and orphaned archives from dir. Records whose archive is
// gone are only dropped here for a machine-local database.
func Open(ctx context.Context, dir, dsn string, opts ...Option) (*Registry, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving registry directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	r := &Registry{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		log:    qlog.NewDiscard(),
		shared: db.IsPostgres(dsn),
	}
	for _, opt := range opts {
		opt(r)
	}

	database, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	r.db = database

	err = r.withLock(ctx, func() error {
		group, err := db.Migrate(ctx, r.db)
		if err != nil {
			return err
		}
		if group.ID != 0 {
			r.log.Debug("registry migrated", "group", group.String())
		}
		return nil
	})
	if err != nil {
		r.db.Close()
		return nil, err
	}

	if _, err := r.sweep(ctx, DefaultMaxAge, !r.shared); err != nil {
		r.log.Warn("registry sweep failed", "error", err)
	}
	return r, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// ArtifactDir is where archives are written.
func (r *Registry) ArtifactDir() string {
	return r.dir
}

// withLock serializes mutations across processes sharing the directory.
func (r *Registry) withLock(ctx context.Context, fn func() error) error {
	locked, err := r.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("acquiring registry lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("registry lock %s is held by another process", r.lock.Path())
	}
	defer r.lock.Unlock()
	return fn()
}

// Insert records an archive that already exists on disk and returns the new
// record id.
func (r *Registry) Insert(ctx context.Context, name, model, path, digest string, createdAt int64) (string, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("archive %s must exist before it is recorded: %w", path, err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}

	rec := &Record{
		ID:        id.String(),
		Name:      name,
		Model:     model,
		Path:      path,
		Digest:    digest,
		CreatedAt: createdAt,
	}
	err = r.withLock(ctx, func() error {
		return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			var seq int64
			err := tx.NewSelect().
				Model((*Record)(nil)).
				ColumnExpr("COALESCE(MAX(seq), 0)").
				Scan(ctx, &seq)
			if err != nil {
				return err
			}
			rec.Seq = seq + 1
			_, err = tx.NewInsert().Model(rec).Exec(ctx)
			return err
		})
	})
	if err != nil {
		return "", fmt.Errorf("inserting record for %s: %w", name, err)
	}

	r.log.Debug("recorded photon", "name", name, "id", rec.ID)
	return rec.ID, nil
}

func (r *Registry) newest(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("created_at DESC", "seq DESC")
}

// FindAllByName returns every version of name, newest first. Versions created
// in the same millisecond are ordered by insertion.
func (r *Registry) FindAllByName(ctx context.Context, name string) ([]Record, error) {
	var recs []Record
	err := r.newest(r.db.NewSelect().Model(&recs).Where("name = ?", name)).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// FindLatest returns the newest version of name.
func (r *Registry) FindLatest(ctx context.Context, name string) (*Record, error) {
	rec := new(Record)
	err := r.newest(r.db.NewSelect().Model(rec).Where("name = ?", name)).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, qerr.Newf(qerr.CodeNotFound, "photon %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Registry) FindByID(ctx context.Context, id string) (*Record, error) {
	rec := new(Record)
	err := r.db.NewSelect().Model(rec).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, qerr.Newf(qerr.CodeNotFound, "photon with id %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListAll returns every record, newest first.
func (r *Registry) ListAll(ctx context.Context) ([]Record, error) {
	var recs []Record
	if err := r.newest(r.db.NewSelect().Model(&recs)).Scan(ctx); err != nil {
		return nil, err
	}
	return recs, nil
}

// FindByPattern returns records whose name matches re, newest first.
func (r *Registry) FindByPattern(ctx context.Context, re *regexp.Regexp) ([]Record, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range all {
		if re.MatchString(rec.Name) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RemoveByName removes only the newest version of name.
func (r *Registry) RemoveByName(ctx context.Context, name string) (*Record, error) {
	rec, err := r.FindLatest(ctx, name)
	if err != nil {
		return nil, err
	}
	return rec, r.remove(ctx, rec)
}

func (r *Registry) RemoveByID(ctx context.Context, id string) (*Record, error) {
	rec, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec, r.remove(ctx, rec)
}

func (r *Registry) remove(ctx context.Context, rec *Record) error {
	err := r.withLock(ctx, func() error {
		res, err := r.db.NewDelete().Model((*Record)(nil)).Where("id = ?", rec.ID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return qerr.Newf(qerr.CodeNotFound, "photon with id %q not found", rec.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := os.Remove(rec.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("record removed but archive could not be deleted", "path", rec.Path, "error", err)
	}
	return nil
}

// Group is every version of one name, newest first.
type Group struct {
	Name     string
	Versions []Record
}

// GroupByName groups records that are already sorted newest first. Groups are
// ordered by their newest version.
func GroupByName(recs []Record) []Group {
	var out []Group
	index := map[string]int{}
	for _, rec := range recs {
		i, ok := index[rec.Name]
		if !ok {
			i = len(out)
			index[rec.Name] = i
			out = append(out, Group{Name: rec.Name})
		}
		out[i].Versions = append(out[i].Versions, rec)
	}
	return out
}

// CreatedAt converts a record timestamp for display.
func CreatedAt(rec Record) time.Time {
	return time.UnixMilli(rec.CreatedAt)
}

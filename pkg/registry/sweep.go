package registry

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	archiveExt = ".photon"
	tmpPrefix  = ".tmp-"
)

// SweepReport lists what a sweep removed.
type SweepReport struct {
	TempFiles []string
	Orphans   []string
	Dangling  []string
}

func (s *SweepReport) Empty() bool {
	return len(s.TempFiles)+len(s.Orphans)+len(s.Dangling) == 0
}

// Sweep deletes temporary archives and archives without a record once they
// are older than maxAge, and drops records whose archive under the artifact
// directory has disappeared. The age floor keeps a save running in another
// process from losing its file between write and insert.
func (r *Registry) Sweep(ctx context.Context, maxAge time.Duration) (*SweepReport, error) {
	return r.sweep(ctx, maxAge, true)
}

func (r *Registry) sweep(ctx context.Context, maxAge time.Duration, dropDangling bool) (*SweepReport, error) {
	report := &SweepReport{}
	cutoff := time.Now().Add(-maxAge)

	err := r.withLock(ctx, func() error {
		recs, err := r.ListAll(ctx)
		if err != nil {
			return err
		}
		// Archive names carry a unique id, so the base name identifies a
		// record even when it was stored with another directory prefix.
		known := make(map[string]bool, len(recs))
		for _, rec := range recs {
			known[filepath.Base(rec.Path)] = true
			if !dropDangling || !r.owns(rec.Path) {
				continue
			}
			if _, err := os.Stat(rec.Path); errors.Is(err, fs.ErrNotExist) {
				if _, err := r.db.NewDelete().Model((*Record)(nil)).Where("id = ?", rec.ID).Exec(ctx); err != nil {
					return err
				}
				report.Dangling = append(report.Dangling, rec.ID)
			}
		}

		entries, err := os.ReadDir(r.dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, archiveExt) {
				continue
			}
			path := filepath.Join(r.dir, name)
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			switch {
			case strings.HasPrefix(name, tmpPrefix):
				report.TempFiles = append(report.TempFiles, path)
			case !known[name]:
				report.Orphans = append(report.Orphans, path)
			default:
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Empty() {
		r.log.Info("registry swept",
			"temp", len(report.TempFiles),
			"orphans", len(report.Orphans),
			"dangling", len(report.Dangling))
	}
	return report, nil
}

// owns reports whether path is an absolute path inside the artifact directory.
func (r *Registry) owns(path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	rel, err := filepath.Rel(r.dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

package photon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/quatton/photon/pkg/qerr"
)

// Recorder persists one registry record per saved artifact.
type Recorder interface {
	ArtifactDir() string
	Insert(ctx context.Context, name, model, path, digest string, createdAt int64) (string, error)
}

// Artifact is the result of a successful save.
type Artifact struct {
	ID       string
	Path     string
	Digest   string
	Metadata *Metadata
}

type entry struct {
	name string
	data []byte
	src  string
	mode fs.FileMode
}

// Save packages the definition into an archive in the recorder's artifact
// directory and records it. The archive is written to a temporary file and
// renamed into place; if recording fails the archive is removed again.
func Save(ctx context.Context, d *Definition, rec Recorder) (*Artifact, error) {
	runner := d.Runner
	if runner == nil {
		r, err := d.Model.Instantiate()
		if err != nil {
			return nil, qerr.Newf(qerr.CodePackaging, "constructing %s: %w", d.Model, err)
		}
		runner = r
	}

	for _, h := range d.Handlers {
		if !h.IsMounted() && h.Fn == nil {
			return nil, qerr.Newf(qerr.CodePackaging, "route %s has no implementation to derive a schema from", h.Path)
		}
	}

	createdAt := time.Now()
	doc, err := json.Marshal(DeriveSchema(d.Name, "1.0.0", d.Handlers))
	if err != nil {
		return nil, qerr.Newf(qerr.CodePackaging, "encoding openapi document: %w", err)
	}

	md := &Metadata{
		Name:                  d.Name,
		Model:                 d.Model.Raw,
		Image:                 d.Image,
		Args:                  d.Args,
		CreatedAt:             createdAt.UnixMilli(),
		OpenAPI:               doc,
		RequirementDependency: mergeDependencies(runner, d.Dependencies),
		SystemDependency:      dedupe(d.SystemDependencies),
		VCSURL:                d.VCSURL,
	}
	if md.Args == nil {
		md.Args = map[string]any{}
	}
	for _, h := range d.Handlers {
		if h.IsMounted() {
			md.MountedPaths = append(md.MountedPaths, h.Path)
		}
	}

	base := d.BaseDir
	if base == "" {
		if base, err = os.Getwd(); err != nil {
			return nil, qerr.New(qerr.CodePackaging, err)
		}
	}

	var entries []entry
	if s, ok := runner.(Stateful); ok {
		state, err := s.MarshalState()
		if err != nil {
			return nil, qerr.Newf(qerr.CodePackaging, "capturing state: %w", err)
		}
		entries = append(entries, entry{name: StateFile, data: state, mode: 0o644})
	}

	if d.Model.HasCode() {
		code, err := collect(base, d.Model.CodePath, CodeDir)
		if err != nil {
			return nil, err
		}
		entries = append(entries, code...)
	}

	for _, p := range d.ExtraFiles {
		extra, err := collect(base, p, ExtraDir)
		if err != nil {
			return nil, err
		}
		for _, e := range extra {
			md.ExtraFiles = append(md.ExtraFiles, strings.TrimPrefix(e.name, ExtraDir))
		}
		entries = append(entries, extra...)
	}

	mdBytes, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, qerr.Newf(qerr.CodePackaging, "encoding metadata: %w", err)
	}
	entries = append([]entry{{name: MetadataFile, data: mdBytes, mode: 0o644}}, entries...)

	dir := rec.ArtifactDir()
	path, digest, err := writeArchive(dir, d.Name, createdAt, entries)
	if err != nil {
		return nil, err
	}

	id, err := rec.Insert(ctx, d.Name, d.Model.Raw, path, digest, md.CreatedAt)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("recording %s: %w", d.Name, err)
	}

	return &Artifact{ID: id, Path: path, Digest: digest, Metadata: md}, nil
}

// Import registers an archive read from src, typically one downloaded from a
// workspace. The archive is staged and digested like Save, and must carry
// valid metadata before it is moved into place.
func Import(ctx context.Context, src io.Reader, rec Recorder) (*Artifact, error) {
	dir := rec.ArtifactDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.photon")
	if err != nil {
		return nil, fmt.Errorf("creating temp archive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	digest := xxhash.New()
	if _, err := io.Copy(io.MultiWriter(tmp, digest), src); err != nil {
		return nil, fmt.Errorf("writing archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	md, err := LoadMetadata(tmp.Name())
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", err)
	}
	final := filepath.Join(dir, fmt.Sprintf("%s-%s.photon", md.Name, id))
	if filepath.Dir(final) != filepath.Clean(dir) {
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "archive name %q escapes %s", md.Name, dir)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, fmt.Errorf("moving archive into place: %w", err)
	}
	committed = true

	sum := fmt.Sprintf("%016x", digest.Sum64())
	recID, err := rec.Insert(ctx, md.Name, md.Model, final, sum, md.CreatedAt)
	if err != nil {
		os.Remove(final)
		return nil, fmt.Errorf("recording %s: %w", md.Name, err)
	}
	return &Artifact{ID: recID, Path: final, Digest: sum, Metadata: md}, nil
}

// collect gathers a file or directory below base into archive entries under
// prefix, in lexical order. Paths escaping base and symlinks are rejected.
func collect(base, rel, prefix string) ([]entry, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) {
		r, err := filepath.Rel(base, clean)
		if err != nil {
			return nil, qerr.Newf(qerr.CodePackaging, "%s is outside %s", rel, base)
		}
		clean = r
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, qerr.Newf(qerr.CodePackaging, "%s is outside %s", rel, base)
	}

	root := filepath.Join(base, clean)
	info, err := os.Lstat(root)
	if err != nil {
		return nil, qerr.Newf(qerr.CodePackaging, "capturing %s: %w", rel, err)
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, qerr.Newf(qerr.CodePackaging, "%s is not a regular file", rel)
		}
		return []entry{{name: prefix + filepath.ToSlash(clean), src: root, mode: info.Mode().Perm()}}, nil
	}

	ignore := ignoreMatcher(root)
	var out []entry
	err = filepath.WalkDir(root, func(p string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root {
			within, _ := filepath.Rel(root, p)
			if de.IsDir() && de.Name() == ".git" {
				return filepath.SkipDir
			}
			if ignore != nil && ignore.Match(strings.Split(filepath.ToSlash(within), "/"), de.IsDir()) {
				if de.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if de.IsDir() {
			return nil
		}
		if de.Type()&fs.ModeSymlink != 0 {
			return qerr.Newf(qerr.CodePackaging, "%s is a symlink and cannot be captured deterministically", p)
		}
		if !de.Type().IsRegular() {
			return nil
		}
		r, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		fi, err := de.Info()
		if err != nil {
			return err
		}
		out = append(out, entry{name: prefix + filepath.ToSlash(r), src: p, mode: fi.Mode().Perm()})
		return nil
	})
	if err != nil {
		if qerr.CodeOf(err) == qerr.CodePackaging {
			return nil, err
		}
		return nil, qerr.Newf(qerr.CodePackaging, "capturing %s: %w", rel, err)
	}
	return out, nil
}

// ignoreMatcher reads the .gitignore files below root. Captured directories
// leave out what the user's repository leaves out.
func ignoreMatcher(root string) gitignore.Matcher {
	ps, err := gitignore.ReadPatterns(osfs.New(root), nil)
	if err != nil || len(ps) == 0 {
		return nil
	}
	return gitignore.NewMatcher(ps)
}

func writeArchive(dir, name string, modified time.Time, entries []entry) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.photon")
	if err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "creating temp archive: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	digest := xxhash.New()
	zw := zip.NewWriter(io.MultiWriter(tmp, digest))
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified}
		hdr.SetMode(e.mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return "", "", qerr.Newf(qerr.CodePackaging, "writing %s: %w", e.name, err)
		}
		if e.src == "" {
			_, err = w.Write(e.data)
		} else {
			err = copyFile(w, e.src)
		}
		if err != nil {
			return "", "", qerr.Newf(qerr.CodePackaging, "writing %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "finalizing archive: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "syncing archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "closing archive: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "failed to generate UUID: %w", err)
	}
	final := filepath.Join(dir, fmt.Sprintf("%s-%s.photon", name, id))
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", "", qerr.Newf(qerr.CodePackaging, "moving archive into place: %w", err)
	}
	committed = true
	return final, fmt.Sprintf("%016x", digest.Sum64()), nil
}

func copyFile(w io.Writer, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func openArchive(path string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, qerr.Newf(qerr.CodeNotFound, "artifact %s does not exist", path)
		}
		return nil, qerr.Newf(qerr.CodeCorruptArtifact, "opening %s: %w", path, err)
	}
	return zr, nil
}

func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, qerr.Newf(qerr.CodeCorruptArtifact, "reading %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, qerr.Newf(qerr.CodeCorruptArtifact, "reading %s: %w", name, err)
		}
		return data, nil
	}
	return nil, qerr.Newf(qerr.CodeCorruptArtifact, "archive has no %s", name)
}

func hasEntry(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// extractPrefix writes every entry under prefix into dest, overwriting what
// is there. Entries resolving outside dest are rejected.
func extractPrefix(zr *zip.Reader, prefix, dest string) ([]string, error) {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, f := range zr.File {
		rel, ok := strings.CutPrefix(f.Name, prefix)
		if !ok || rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		target := filepath.Join(absDest, filepath.FromSlash(rel))
		if r, err := filepath.Rel(absDest, target); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return nil, qerr.Newf(qerr.CodeCorruptArtifact, "entry %s escapes %s", f.Name, dest)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, err
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
		written = append(written, target)
	}
	return written, nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return qerr.Newf(qerr.CodeCorruptArtifact, "reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

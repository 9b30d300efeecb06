package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/quatton/photon/pkg/photon"
	_ "github.com/quatton/photon/pkg/photon/builtin"
	"github.com/quatton/photon/pkg/qerr"
)

func openTest(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	dsn := "file:" + filepath.Join(dir, "registry.db")
	r, err := Open(context.Background(), filepath.Join(dir, "photons"), dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func touch(t *testing.T, r *Registry, name string) string {
	t.Helper()
	path := filepath.Join(r.ArtifactDir(), name)
	if err := os.WriteFile(path, []byte("zip"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInsertOrdering(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	first, err := r.Insert(ctx, "calc", "Counter", touch(t, r, "a.photon"), "d1", 1000)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	second, err := r.Insert(ctx, "calc", "Counter", touch(t, r, "b.photon"), "d2", 1000)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	older, err := r.Insert(ctx, "calc", "Counter", touch(t, r, "c.photon"), "d3", 500)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	recs, err := r.FindAllByName(ctx, "calc")
	if err != nil {
		t.Fatalf("FindAllByName failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	want := []string{second, first, older}
	for i, rec := range recs {
		if rec.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], rec.ID)
		}
	}

	latest, err := r.FindLatest(ctx, "calc")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest.ID != second {
		t.Errorf("expected latest %s, got %s", second, latest.ID)
	}
}

func TestInsertRequiresArchive(t *testing.T) {
	r := openTest(t)
	_, err := r.Insert(context.Background(), "calc", "Counter", filepath.Join(r.ArtifactDir(), "missing.photon"), "", 1)
	if err == nil {
		t.Fatal("expected Insert to fail without an archive")
	}
}

func TestFindMissing(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	if _, err := r.FindLatest(ctx, "nope"); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("FindLatest: expected not found, got %v", err)
	}
	if _, err := r.FindByID(ctx, "nope"); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("FindByID: expected not found, got %v", err)
	}
	if _, err := r.RemoveByName(ctx, "nope"); !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("RemoveByName: expected not found, got %v", err)
	}
}

func TestRemoveByNameRemovesNewestOnly(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	oldPath := touch(t, r, "old.photon")
	newPath := touch(t, r, "new.photon")
	oldID, _ := r.Insert(ctx, "calc", "Counter", oldPath, "", 1)
	newID, _ := r.Insert(ctx, "calc", "Counter", newPath, "", 2)

	removed, err := r.RemoveByName(ctx, "calc")
	if err != nil {
		t.Fatalf("RemoveByName failed: %v", err)
	}
	if removed.ID != newID {
		t.Errorf("expected %s removed, got %s", newID, removed.ID)
	}
	if _, err := os.Stat(newPath); !os.IsNotExist(err) {
		t.Errorf("expected archive deleted, stat err: %v", err)
	}
	latest, err := r.FindLatest(ctx, "calc")
	if err != nil {
		t.Fatalf("FindLatest failed: %v", err)
	}
	if latest.ID != oldID {
		t.Errorf("expected %s to remain, got %s", oldID, latest.ID)
	}
}

func TestListAllAndPattern(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	r.Insert(ctx, "calc", "Counter", touch(t, r, "1.photon"), "", 1)
	r.Insert(ctx, "echo", "Echo", touch(t, r, "2.photon"), "", 2)
	r.Insert(ctx, "calc", "Counter", touch(t, r, "3.photon"), "", 3)

	all, err := r.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	groups := GroupByName(all)
	if len(groups) != 2 || groups[0].Name != "calc" || len(groups[0].Versions) != 2 {
		t.Errorf("unexpected groups: %+v", groups)
	}

	matched, err := r.FindByPattern(ctx, regexp.MustCompile("^ec"))
	if err != nil {
		t.Fatalf("FindByPattern failed: %v", err)
	}
	if len(matched) != 1 || matched[0].Name != "echo" {
		t.Errorf("unexpected matches: %+v", matched)
	}
}

func TestSaveThroughRegistry(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)

	def, err := photon.Create("calc", "Counter", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	art, err := photon.Save(ctx, def, r)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, err := r.FindByID(ctx, art.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if rec.Path != art.Path || rec.Digest != art.Digest || rec.Model != "Counter" {
		t.Errorf("record does not match artifact: %+v vs %+v", rec, art)
	}
	if _, err := os.Stat(rec.Path); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)
	old := time.Now().Add(-2 * time.Hour)

	tmp := touch(t, r, ".tmp-123.photon")
	orphan := touch(t, r, "orphan.photon")
	fresh := touch(t, r, "fresh.photon")
	kept := touch(t, r, "kept.photon")
	for _, p := range []string{tmp, orphan, kept} {
		os.Chtimes(p, old, old)
	}
	keptID, _ := r.Insert(ctx, "calc", "Counter", kept, "", 1)
	goneID, _ := r.Insert(ctx, "calc", "Counter", touch(t, r, "gone.photon"), "", 2)
	os.Remove(filepath.Join(r.ArtifactDir(), "gone.photon"))

	report, err := r.Sweep(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(report.TempFiles) != 1 || len(report.Orphans) != 1 || len(report.Dangling) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Dangling[0] != goneID {
		t.Errorf("expected %s dangling, got %s", goneID, report.Dangling[0])
	}
	for _, p := range []string{tmp, orphan} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s removed", p)
		}
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh orphan must survive: %v", err)
	}
	if _, err := r.FindByID(ctx, keptID); err != nil {
		t.Errorf("kept record must survive: %v", err)
	}
}

func TestOpenFromAnotherDirectoryKeepsRecords(t *testing.T) {
	ctx := context.Background()
	first, second := t.TempDir(), t.TempDir()
	dsn := "file:" + filepath.Join(t.TempDir(), "registry.db")

	t.Chdir(first)
	r, err := Open(ctx, "photons", dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !filepath.IsAbs(r.ArtifactDir()) {
		t.Fatalf("artifact dir must be absolute, got %s", r.ArtifactDir())
	}
	touch(t, r, "calc-1.photon")
	id, err := r.Insert(ctx, "calc", "Counter", filepath.Join("photons", "calc-1.photon"), "", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	rec, _ := r.FindByID(ctx, id)
	if !filepath.IsAbs(rec.Path) {
		t.Errorf("record path must be absolute, got %s", rec.Path)
	}
	r.Close()

	t.Chdir(second)
	other, err := Open(ctx, "photons", dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer other.Close()
	if _, err := other.Sweep(ctx, 0); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if _, err := other.FindByID(ctx, id); err != nil {
		t.Errorf("record from another artifact dir was dropped: %v", err)
	}
	if _, err := os.Stat(filepath.Join(first, "photons", "calc-1.photon")); err != nil {
		t.Errorf("archive must survive: %v", err)
	}
}

func TestSharedDatabaseKeepsDanglingRecords(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)
	path := touch(t, r, "calc-1.photon")
	id, err := r.Insert(ctx, "calc", "Counter", path, "", 1)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	os.Remove(path)

	r.shared = true
	report, err := r.sweep(ctx, DefaultMaxAge, !r.shared)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(report.Dangling) != 0 {
		t.Fatalf("shared database must not drop records on open, got %+v", report)
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		t.Errorf("record dropped: %v", err)
	}
}

func TestMutationsWaitForRegistryLock(t *testing.T) {
	ctx := context.Background()
	r := openTest(t)
	path := touch(t, r, "calc-1.photon")

	other := flock.New(filepath.Join(r.ArtifactDir(), lockFile))
	if err := other.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	_, err := r.Insert(short, "calc", "Counter", path, "", 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Insert to give up waiting for the lock, got %v", err)
	}
	if recs, _ := r.ListAll(ctx); len(recs) != 0 {
		t.Fatalf("expected no records while locked, got %d", len(recs))
	}

	done := make(chan error, 1)
	go func() {
		_, err := r.Insert(ctx, "calc", "Counter", path, "", 1)
		done <- err
	}()
	select {
	case err := <-done:
		t.Fatalf("Insert finished while the lock was held: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	if err := other.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Insert failed after unlock: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Insert did not resume after unlock")
	}
	if recs, _ := r.ListAll(ctx); len(recs) != 1 {
		t.Errorf("expected one record, got %d", len(recs))
	}
}

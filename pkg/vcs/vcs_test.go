package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/quatton/photon/pkg/qerr"
)

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("https://github.com/quatton/examples.git#main")
	if err != nil {
		t.Fatalf("ParseRef failed: %v", err)
	}
	if ref.URL != "https://github.com/quatton/examples.git" || ref.Name != "main" {
		t.Errorf("unexpected ref: %+v", ref)
	}
	if _, err := ParseRef("not a url"); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDirIsStable(t *testing.T) {
	f := NewFetcher("/cache")
	a := f.Dir("https://github.com/quatton/examples.git")
	b := f.Dir("https://github.com/quatton/examples.git")
	c := f.Dir("https://github.com/quatton/other.git")
	if a != b || a == c {
		t.Errorf("unexpected dirs: %s %s %s", a, b, c)
	}
	if filepath.Dir(a) != "/cache" {
		t.Errorf("expected dir below root, got %s", a)
	}
}

var author = &object.Signature{Name: "t", Email: "t@example.com", When: time.Now()}

func commitFile(t *testing.T, repo *git.Repository, dir, content string) plumbing.Hash {
	t.Helper()
	os.WriteFile(filepath.Join(dir, "main.txt"), []byte(content), 0644)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	wt.Add("main.txt")
	hash, err := wt.Commit(content, &git.CommitOptions{Author: author})
	if err != nil {
		t.Fatal(err)
	}
	return hash
}

func TestFetchLocalRepository(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, src, "hello")

	f := NewFetcher(t.TempDir())
	raw := "file://" + src
	dir, err := f.Fetch(context.Background(), raw)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "main.txt")); err != nil || string(b) != "hello" {
		t.Errorf("unexpected checkout: %q %v", b, err)
	}

	again, err := f.Fetch(context.Background(), raw)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if again != dir {
		t.Errorf("expected same dir, got %s and %s", dir, again)
	}
}

func TestFetchFollowsUpstreamAndDiscardsEdits(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	if err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, src, "one")

	f := NewFetcher(t.TempDir())
	raw := "file://" + src
	dir, err := f.Fetch(context.Background(), raw)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	os.WriteFile(filepath.Join(dir, "main.txt"), []byte("local edit"), 0644)
	commitFile(t, repo, src, "two")

	if _, err := f.Fetch(context.Background(), raw); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if b, _ := os.ReadFile(filepath.Join(dir, "main.txt")); string(b) != "two" {
		t.Errorf("expected upstream content, got %q", b)
	}
}

func TestFetchTag(t *testing.T) {
	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	if err != nil {
		t.Fatal(err)
	}
	first := commitFile(t, repo, src, "v1 content")
	if _, err := repo.CreateTag("v1", first, &git.CreateTagOptions{Tagger: author, Message: "v1"}); err != nil {
		t.Fatal(err)
	}
	lightweight := plumbing.NewHashReference(plumbing.NewTagReferenceName("light"), first)
	if err := repo.Storer.SetReference(lightweight); err != nil {
		t.Fatal(err)
	}
	commitFile(t, repo, src, "v2 content")

	f := NewFetcher(t.TempDir())
	for _, tag := range []string{"v1", "light"} {
		dir, err := f.Fetch(context.Background(), "file://"+src+"#"+tag)
		if err != nil {
			t.Fatalf("Fetch %s failed: %v", tag, err)
		}
		if b, _ := os.ReadFile(filepath.Join(dir, "main.txt")); string(b) != "v1 content" {
			t.Errorf("%s: expected tagged content, got %q", tag, b)
		}
	}

	_, err = f.Fetch(context.Background(), "file://"+src+"#nope")
	if !qerr.IsCode(err, qerr.CodeNotFound) {
		t.Errorf("expected not found for an unknown ref, got %v", err)
	}
}

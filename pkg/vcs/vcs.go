// Package vcs checks out the repository a photon declares in vcs_url.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/quatton/photon/pkg/qerr"
)

type Fetcher struct {
	root     string
	progress io.Writer
}

type Option func(*Fetcher)

// WithProgress streams clone progress, usually to stderr.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) {
		f.progress = w
	}
}

// NewFetcher checks repositories out below root.
func NewFetcher(root string, opts ...Option) *Fetcher {
	f := &Fetcher{root: root}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Ref is a parsed vcs_url. A fragment names a branch or tag, e.g.
// https://github.com/org/repo.git#main or ...#v1.2.0. Without one the
// remote's default branch is used.
type Ref struct {
	URL  string
	Name string
}

func ParseRef(raw string) (Ref, error) {
	// scp-like addresses such as git@github.com:org/repo.git are not urls.
	if !strings.Contains(raw, "://") && strings.Contains(raw, "@") {
		addr, name, _ := strings.Cut(raw, "#")
		return Ref{URL: addr, Name: name}, nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Host == "" && u.Scheme != "file") {
		return Ref{}, qerr.Newf(qerr.CodeValidation, "invalid vcs_url %q", raw)
	}
	ref := Ref{Name: u.Fragment}
	u.Fragment = ""
	ref.URL = u.String()
	return ref, nil
}

// Dir is where raw is checked out. Equal urls share a directory.
func (f *Fetcher) Dir(raw string) string {
	ref, err := ParseRef(raw)
	name := "repo"
	if err == nil {
		name = strings.TrimSuffix(filepath.Base(ref.URL), ".git")
	}
	return filepath.Join(f.root, fmt.Sprintf("%s-%016x", name, xxhash.Sum64String(raw)))
}

// Fetch clones raw on first use, otherwise fetches from origin. Either way
// the worktree is then reset to the requested branch or tag, discarding
// local edits. It returns the working directory.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (string, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return "", err
	}
	dir := f.Dir(raw)

	repo, err := git.PlainOpen(dir)
	switch {
	case errors.Is(err, git.ErrRepositoryNotExists):
		if err := os.MkdirAll(f.root, 0o755); err != nil {
			return "", err
		}
		repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:      ref.URL,
			Progress: f.progress,
			Tags:     git.AllTags,
		})
		if err != nil {
			os.RemoveAll(dir)
			return "", qerr.Newf(qerr.CodeNetwork, "cloning %s: %w", ref.URL, err)
		}
	case err != nil:
		return "", fmt.Errorf("opening %s: %w", dir, err)
	default:
		err = repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Progress:   f.progress,
			Tags:       git.AllTags,
			Force:      true,
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", qerr.Newf(qerr.CodeNetwork, "fetching %s: %w", ref.URL, err)
		}
	}

	hash, err := resolve(repo, ref.Name)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	// The default branch stays attached so later fetches can follow it.
	if ref.Name == "" {
		err = wt.Reset(&git.ResetOptions{Commit: hash, Mode: git.HardReset})
	} else {
		err = wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true})
	}
	if err != nil {
		return "", fmt.Errorf("checking out %s in %s: %w", hash, dir, err)
	}
	return dir, nil
}

// resolve finds the commit for name: a remote branch first, then a tag. An
// empty name follows the branch the clone started on.
func resolve(repo *git.Repository, name string) (plumbing.Hash, error) {
	if name == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, fmt.Errorf("reading HEAD: %w", err)
		}
		if !head.Name().IsBranch() {
			return head.Hash(), nil
		}
		name = head.Name().Short()
	}

	for _, candidate := range []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName("origin", name),
		plumbing.NewTagReferenceName(name),
	} {
		r, err := repo.Reference(candidate, true)
		if err != nil {
			continue
		}
		hash := r.Hash()
		if tag, err := repo.TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return plumbing.ZeroHash, fmt.Errorf("tag %s: %w", name, err)
			}
			hash = commit.Hash
		}
		return hash, nil
	}
	return plumbing.ZeroHash, qerr.Newf(qerr.CodeNotFound, "no branch or tag %q in repository", name)
}

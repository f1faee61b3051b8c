// Package git versions saved run reports in a local repository so a profile
// keeps an auditable history of automation outcomes, optionally synced to a
// configured remote.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Status represents Git state following a commit attempt.
type Status struct {
	Committed bool
	Pending   bool
	Hash      string
}

// Repo describes the operations the CLI needs from the archive.
type Repo interface {
	Commit(ctx context.Context, message string, paths []string) (Status, error)
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
}

// Archive is a go-git backed Repo rooted at a profile's report directory.
type Archive struct {
	path string
	repo *gogit.Repository
}

// Open opens the repository at path, initializing it on first use. When
// remoteURL is set an origin remote is ensured.
func Open(path, remoteURL string) (*Archive, error) {
	repo, err := gogit.PlainOpen(path)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		repo, err = gogit.PlainInit(path, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	if remoteURL != "" {
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: "origin",
			URLs: []string{remoteURL},
		})
		if err != nil && !errors.Is(err, gogit.ErrRemoteExists) {
			return nil, fmt.Errorf("configure remote: %w", err)
		}
	}
	return &Archive{path: path, repo: repo}, nil
}

// Commit stages paths (given absolute or archive-relative) and records a
// commit. A clean worktree returns an uncommitted Status without error.
func (a *Archive) Commit(ctx context.Context, message string, paths []string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}
	wt, err := a.repo.Worktree()
	if err != nil {
		return Status{}, err
	}
	for _, p := range paths {
		rel := p
		if filepath.IsAbs(p) {
			rel, err = filepath.Rel(a.path, p)
			if err != nil {
				return Status{}, fmt.Errorf("stage %s: %w", p, err)
			}
		}
		if _, err := wt.Add(rel); err != nil {
			return Status{}, fmt.Errorf("stage %s: %w", rel, err)
		}
	}
	wtStatus, err := wt.Status()
	if err != nil {
		return Status{}, err
	}
	if wtStatus.IsClean() {
		return Status{Committed: false, Pending: false}, nil
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "axdrive",
			Email: "axdrive@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return Status{Pending: true}, err
	}
	return Status{Committed: true, Hash: hash.String()}, nil
}

// Push pushes to origin. Already-up-to-date is not an error.
func (a *Archive) Push(ctx context.Context) error {
	err := a.repo.PushContext(ctx, &gogit.PushOptions{})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// Pull fetches and fast-forward merges from origin.
func (a *Archive) Pull(ctx context.Context) error {
	wt, err := a.repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &gogit.PullOptions{})
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

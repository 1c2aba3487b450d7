package sync

import (
	"fmt"
	"os"
	stdsync "sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitManager commits and pushes the local notes directory after saves. The
// directory must already be a git repository with a configured remote.
// Syncs are serialized: saves land in quick succession and go-git must not
// run add/commit/push interleaved on one repository.
type GitManager struct {
	RepoPath    string
	AuthorName  string
	AuthorEmail string

	mu stdsync.Mutex
}

// NewGitManager creates a new GitManager.
func NewGitManager(repoPath, authorName, authorEmail string) *GitManager {
	if authorName == "" {
		authorName = "voxnote"
	}
	if authorEmail == "" {
		authorEmail = "voxnote@localhost"
	}
	return &GitManager{RepoPath: repoPath, AuthorName: authorName, AuthorEmail: authorEmail}
}

// Sync commits all changes and pushes to the remote. A clean worktree and an
// up-to-date remote are not errors: notes may land on S3 instead of disk.
func (g *GitManager) Sync(message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, err := git.PlainOpen(g.RepoPath)
	if err != nil {
		return fmt.Errorf("failed to open repo: %w", err)
	}

	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		return nil
	}

	if _, err := w.Add("."); err != nil {
		return fmt.Errorf("failed to add changes: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Auto-sync: %s", time.Now().Format(time.RFC3339))
	}
	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.AuthorName,
			Email: g.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	err = r.Push(pushOptions())
	if err != nil {
		if err == git.NoErrAlreadyUpToDate {
			return nil
		}
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// pushOptions tries the default SSH key; without one, push relies on whatever
// auth the remote URL carries (https token, public repo).
func pushOptions() *git.PushOptions {
	home, err := os.UserHomeDir()
	if err != nil {
		return &git.PushOptions{}
	}
	publicKeys, err := ssh.NewPublicKeysFromFile("git", home+"/.ssh/id_rsa", "")
	if err != nil {
		return &git.PushOptions{}
	}
	return &git.PushOptions{Auth: publicKeys}
}

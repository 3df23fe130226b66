package git

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/chmouel/gitmon/internal/log"
	"github.com/chmouel/gitmon/internal/models"
	"github.com/chmouel/gitmon/internal/paths"
)

// Service is the typed facade over one repository root. Mutating
// operations acquire the shared WriteGate around their invocations;
// read-only operations run ungated.
type Service struct {
	root string
	run  Invoker
	gate *WriteGate
}

// NewService wires a facade for the repository rooted at root. A nil
// gate gets a private one; hosts working with several roots should pass
// one shared gate so writes serialize system-wide.
func NewService(root string, run Invoker, gate *WriteGate) *Service {
	if gate == nil {
		gate = NewWriteGate()
	}
	return &Service{root: root, run: run, gate: gate}
}

// Root returns the repository root this service operates on.
func (s *Service) Root() string { return s.root }

func (s *Service) debugf(format string, args ...any) {
	log.Printf(format, args...)
}

// relative converts absolute host paths to repository-relative ones,
// dropping empty entries.
func (s *Service) relative(files []string) []string {
	rel := make([]string, 0, len(files))
	for _, f := range files {
		if f == "" {
			continue
		}
		rel = append(rel, paths.Relative(f, s.root))
	}
	return rel
}

// Add stages the given files into the index.
func (s *Service) Add(ctx context.Context, files []string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.addLocked(ctx, files)
}

func (s *Service) addLocked(ctx context.Context, files []string) (string, error) {
	return s.run.Execute(ctx, CmdAdd, nil, s.relative(files), false)
}

// Commit stages the given files and commits them with message. Lines
// starting with "#" are stripped from the message, matching the comment
// convention of commit templates; the cleaned message goes to git
// through a temporary file so its content never needs shell quoting.
func (s *Service) Commit(ctx context.Context, files []string, message string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()

	msg := stripCommentLines(message)
	tmp, err := os.CreateTemp("", "gitmon-commit-msg-*.txt")
	if err != nil {
		return "", fmt.Errorf("writing commit message: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.WriteString(msg); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing commit message: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing commit message: %w", err)
	}

	// Stage the current snapshot first; a failed commit leaves the
	// stage in place, no rollback is attempted.
	if _, err := s.addLocked(ctx, files); err != nil {
		return "", err
	}
	s.debugf("commit: %d file(s) in %s", len(files), s.root)
	return s.run.Execute(ctx, CmdCommit, []string{"-F", tmp.Name()}, s.relative(files), false)
}

// stripCommentLines removes "#"-prefixed lines from a commit message.
func stripCommentLines(message string) string {
	var b strings.Builder
	for line := range strings.SplitSeq(message, "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// Delete removes the given files from the repository.
func (s *Service) Delete(ctx context.Context, files []string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdRemove, []string{"-f"}, s.relative(files), false)
}

// Checkout switches to branch, creating it as a tracking branch when
// create is set.
func (s *Service) Checkout(ctx context.Context, branch string, create bool) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	var opts []string
	if create {
		opts = []string{"--track", "-b"}
	}
	return s.run.Execute(ctx, CmdCheckout, opts, []string{branch}, false)
}

// Clone clones the src repository (URL or path) into target.
func (s *Service) Clone(ctx context.Context, src, target string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdClone, nil, []string{src, target}, false)
}

// Merge merges the current branch's upstream.
func (s *Service) Merge(ctx context.Context) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdMerge, nil, nil, false)
}

// MergeBranch merges the named branch into the current one.
func (s *Service) MergeBranch(ctx context.Context, branch string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdMerge, nil, []string{branch}, false)
}

// Move renames oldPath to newPath through git so the index follows.
func (s *Service) Move(ctx context.Context, oldPath, newPath string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	args := []string{paths.Relative(oldPath, s.root), paths.Relative(newPath, s.root)}
	return s.run.Execute(ctx, CmdMove, nil, args, false)
}

// GC runs repository garbage collection.
func (s *Service) GC(ctx context.Context) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdGC, nil, nil, false)
}

// Rebase rebases the current branch.
func (s *Service) Rebase(ctx context.Context) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdRebase, nil, nil, false)
}

// Pull updates from repoURL. With merge set it pulls, otherwise it only
// fetches. A second pass picks up tags; both outputs are returned.
func (s *Service) Pull(ctx context.Context, repoURL string, merge bool) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	cmd := CmdFetch
	if merge {
		cmd = CmdPull
	}
	first, err := s.run.Execute(ctx, cmd, nil, []string{repoURL}, false)
	if err != nil {
		return first, err
	}
	second, err := s.run.Execute(ctx, cmd, []string{"--tags"}, []string{repoURL}, false)
	return first + second, err
}

// Push publishes the current branch, then pushes tags.
func (s *Service) Push(ctx context.Context) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	first, err := s.run.Execute(ctx, CmdPush, nil, nil, false)
	if err != nil {
		return first, err
	}
	second, err := s.run.Execute(ctx, CmdPush, []string{"--tags"}, nil, false)
	return first + second, err
}

// Revert restores the given files to their HEAD state. Files that are
// freshly added to the index have no HEAD state to restore, so they are
// force-removed from the index instead.
func (s *Service) Revert(ctx context.Context, files []string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	var b strings.Builder
	for _, f := range files {
		if f == "" {
			continue
		}
		rel := paths.Relative(f, s.root)
		st, tracked, err := s.FileIndexStatus(ctx, f)
		if err != nil {
			return b.String(), err
		}
		s.debugf("revert: %s (index status %s, tracked %v)", rel, st, tracked)
		var out string
		if tracked && st == models.StatusAdded {
			out, err = s.run.Execute(ctx, CmdUpdateIndex, []string{"--force-remove", "--"}, []string{rel}, false)
		} else {
			out, err = s.run.Execute(ctx, CmdCheckout, []string{"HEAD", "--"}, []string{rel}, false)
		}
		if err != nil {
			return b.String(), err
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// Tag tags the current state with tagName.
func (s *Service) Tag(ctx context.Context, tagName string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdTag, nil, []string{tagName}, false)
}

// Stash saves all current changes under stashName.
func (s *Service) Stash(ctx context.Context, stashName string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdStash, nil, []string{stashName}, false)
}

// Unstash restores the changes saved under stashName.
func (s *Service) Unstash(ctx context.Context, stashName string) (string, error) {
	s.gate.lock()
	defer s.gate.unlock()
	return s.run.Execute(ctx, CmdStash, nil, []string{"apply", stashName}, false)
}

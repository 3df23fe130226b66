package git

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chmouel/gitmon/internal/models"
	"github.com/chmouel/gitmon/internal/paths"
	"github.com/chmouel/gitmon/internal/status"
)

// annotateTimeLayout is the date format blame prints per line.
const annotateTimeLayout = "2006-01-02 15:04:05 -0700"

// Version returns the version string of the external git binary.
func (s *Service) Version(ctx context.Context) (string, error) {
	return s.run.Execute(ctx, CmdVersion, nil, nil, true)
}

// BranchList lists branches; remoteOnly restricts to remote ones. The
// active branch carries the "* " prefix in the listing, remote branches
// contain a "/" in their name.
func (s *Service) BranchList(ctx context.Context, remoteOnly bool) ([]models.Branch, error) {
	var opts []string
	if remoteOnly {
		opts = []string{"-r"}
	}
	out, err := s.run.Execute(ctx, CmdBranch, opts, nil, true)
	if err != nil {
		return nil, err
	}
	var branches []models.Branch
	for line := range strings.SplitSeq(out, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		active := false
		if rest, ok := strings.CutPrefix(name, "* "); ok {
			name = rest
			active = true
		}
		branches = append(branches, models.Branch{
			Name:   name,
			Active: active,
			Remote: strings.Contains(name, "/"),
		})
	}
	return branches, nil
}

// CurrentBranch returns the name of the active branch, defaulting to
// "master" when the listing has no active marker.
func (s *Service) CurrentBranch(ctx context.Context) (string, error) {
	out, err := s.run.Execute(ctx, CmdBranch, nil, nil, true)
	if err != nil {
		return "", err
	}
	for line := range strings.SplitSeq(out, "\n") {
		if strings.HasPrefix(line, "*") && len(line) > 2 {
			return line[2:], nil
		}
	}
	return "master", nil
}

// RemoteRepoURL returns the URL of the remote a remote branch comes
// from, or "" for a local branch.
func (s *Service) RemoteRepoURL(ctx context.Context, branch models.Branch) (string, error) {
	if !branch.Remote {
		return "", nil
	}
	alias, _, _ := strings.Cut(branch.Name, "/")
	opts := []string{"--get", "remote." + alias + ".url"}
	return s.run.Execute(ctx, CmdConfig, opts, nil, true)
}

// CachedFiles returns the changed files already staged into the index,
// with their status.
func (s *Service) CachedFiles(ctx context.Context) ([]models.TrackedFile, error) {
	opts := []string{"--cached", "--name-status", "--diff-filter=ADMRUX", "--"}
	out, err := s.run.Execute(ctx, CmdDiff, opts, nil, true)
	if err != nil {
		return nil, err
	}
	return s.parseNameStatus(out), nil
}

// UncachedFiles returns absolute paths of tracked files whose
// modifications are not yet staged.
func (s *Service) UncachedFiles(ctx context.Context) ([]string, error) {
	opts := []string{"--name-status", "--diff-filter=MRU", "--"}
	out, err := s.run.Execute(ctx, CmdDiff, opts, nil, true)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, tf := range s.parseNameStatus(out) {
		files = append(files, tf.Path)
	}
	return files, nil
}

// OtherFiles returns absolute paths of files on disk that are neither
// tracked nor ignored.
func (s *Service) OtherFiles(ctx context.Context) ([]string, error) {
	out, err := s.run.Execute(ctx, CmdLsFiles, []string{"--others", "--exclude-standard", "--"}, nil, true)
	if err != nil {
		return nil, err
	}
	return s.absoluteLines(out), nil
}

// IgnoredFiles returns absolute paths of files matching the ignore
// configuration.
func (s *Service) IgnoredFiles(ctx context.Context) ([]string, error) {
	out, err := s.run.Execute(ctx, CmdLsFiles, []string{"--ignored", "--exclude-standard", "--"}, nil, true)
	if err != nil {
		return nil, err
	}
	return s.absoluteLines(out), nil
}

func (s *Service) absoluteLines(out string) []string {
	var files []string
	for line := range strings.SplitSeq(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		files = append(files, s.root+"/"+line)
	}
	return files
}

// parseNameStatus turns "S\tpath" lines into tracked files with
// absolute paths. Some git builds prefix the first line with a literal
// "null"; it is stripped for compatibility.
func (s *Service) parseNameStatus(out string) []models.TrackedFile {
	out = strings.TrimPrefix(out, "null")
	var files []models.TrackedFile
	for line := range strings.SplitSeq(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			continue
		}
		files = append(files, models.TrackedFile{
			Path:   s.root + "/" + parts[1],
			Status: status.Classify(parts[0]),
		})
	}
	return files
}

// TrackedFiles reports the diff status of the given paths.
func (s *Service) TrackedFiles(ctx context.Context, files []string) ([]models.TrackedFile, error) {
	args := s.relative(files)
	out, err := s.run.Execute(ctx, CmdDiff, []string{"--name-status", "--"}, args, true)
	if err != nil {
		return nil, err
	}
	return s.parseNameStatus(out), nil
}

// FileKnown reports whether git tracks the given file.
func (s *Service) FileKnown(ctx context.Context, path string) (bool, error) {
	rel := paths.Relative(path, s.root)
	out, err := s.run.Execute(ctx, CmdLsFiles, nil, []string{rel}, true)
	if err != nil {
		return false, err
	}
	return out != "" && strings.Contains(out, rel), nil
}

// FileIndexStatus returns the staged diff status of path. The second
// return is false when the index has no entry for the path.
func (s *Service) FileIndexStatus(ctx context.Context, path string) (models.FileStatus, bool, error) {
	rel := paths.Relative(path, s.root)
	opts := []string{"--cached", "--name-status", "--"}
	out, err := s.run.Execute(ctx, CmdDiff, opts, []string{rel}, true)
	if err != nil {
		return models.StatusUnmodified, false, err
	}
	if out == "" || !strings.Contains(out, rel) {
		return models.StatusUnmodified, false, nil
	}
	code, _, _ := strings.Cut(out, "\t")
	return status.Classify(code), true, nil
}

// Contents returns the content of path at the given revision, HEAD when
// revision is empty. Failures collapse to an empty string; callers use
// this for best-effort content loading.
func (s *Service) Contents(ctx context.Context, path, revision string) string {
	rev := revision
	if rev == "" {
		rev = "HEAD"
	} else if len(rev) > 40 {
		// Date-and-id encoded revision string: the id sits between the
		// opening bracket and offset 40.
		if i := strings.Index(rev, "["); i >= 0 && i+1 < 40 {
			rev = rev[i+1 : 40]
		}
	}
	spec := rev + ":" + paths.Relative(path, s.root)
	out, err := s.run.Execute(ctx, CmdShow, nil, []string{spec}, true)
	if err != nil {
		return ""
	}
	return out
}

// CommitTemplate returns the configured commit template contents, or ""
// when none is configured or it cannot be read.
func (s *Service) CommitTemplate(ctx context.Context) string {
	name, err := s.run.Execute(ctx, CmdConfig, nil, []string{"commit.template"}, true)
	if err != nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	data, err := os.ReadFile(name) // #nosec G304 -- the path comes from the user's own git config
	if err != nil {
		return ""
	}
	return string(data)
}

// StashList returns the current stash entries, nil when there are none.
func (s *Service) StashList(ctx context.Context) ([]string, error) {
	out, err := s.run.Execute(ctx, CmdStash, []string{"list"}, nil, true)
	if err != nil {
		return nil, err
	}
	var entries []string
	for line := range strings.SplitSeq(out, "\n") {
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// Log returns the revision history of path, most recent first. The
// listing joins id, author, unix timestamp and subject with a literal
// "@@@" delimiter, a sequence that cannot appear in any of the fields
// git prints before the subject.
func (s *Service) Log(ctx context.Context, path string) ([]models.Revision, error) {
	opts := []string{
		"-C",
		"-l5",
		"--find-copies-harder",
		"-n50",
		"--pretty=format:%H@@@%an <%ae>@@@%ct@@@%s",
		"--",
	}
	out, err := s.run.Execute(ctx, CmdLog, opts, []string{paths.Relative(path, s.root)}, true)
	if err != nil {
		return nil, err
	}
	var revisions []models.Revision
	for line := range strings.SplitSeq(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "@@@")
		if len(fields) != 4 {
			return nil, &ParseError{Format: "log", Line: line, Reason: "expected 4 fields"}
		}
		secs, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, &ParseError{Format: "log", Line: line, Reason: "bad timestamp"}
		}
		revisions = append(revisions, models.Revision{
			ID:      fields[0],
			Author:  fields[1],
			Time:    time.Unix(secs, 0),
			Subject: fields[3],
		})
	}
	return revisions, nil
}

// Annotate returns the per-line annotation of path. Each blame line is
// tab-separated: 40-character revision id, parenthesized author, date,
// then "<line>)<content>". Lines whose author or line marker do not
// match the expected shape are skipped, matching the tool's own
// tolerance for boundary commits.
func (s *Service) Annotate(ctx context.Context, path string) ([]models.AnnotationLine, error) {
	opts := []string{"-c", "-C", "-l", "--"}
	out, err := s.run.Execute(ctx, CmdBlame, opts, []string{paths.Relative(path, s.root)}, true)
	if err != nil {
		return nil, err
	}
	var lines []models.AnnotationLine
	for raw := range strings.SplitSeq(out, "\n") {
		if raw == "" {
			continue
		}
		fields := strings.SplitN(raw, "\t", 4)
		if len(fields) != 4 {
			return nil, &ParseError{Format: "annotate", Line: raw, Reason: "expected 4 fields"}
		}
		revision, author, dateStr, numbered := fields[0], fields[1], fields[2], fields[3]
		if len(revision) != 40 {
			return nil, &ParseError{Format: "annotate", Line: raw, Reason: "illegal revision id"}
		}
		idx := strings.IndexByte(numbered, ')')
		if !strings.HasPrefix(author, "(") || idx <= 0 {
			continue
		}
		lineNo, err := strconv.ParseInt(strings.TrimSpace(numbered[:idx]), 10, 64)
		if err != nil {
			return nil, &ParseError{Format: "annotate", Line: raw, Reason: "bad line number"}
		}
		when, err := time.Parse(annotateTimeLayout, dateStr)
		if err != nil {
			return nil, &ParseError{Format: "annotate", Line: raw, Reason: "bad date"}
		}
		lines = append(lines, models.AnnotationLine{
			Revision: revision,
			Author:   strings.TrimSpace(author[1:]),
			Time:     when,
			Line:     lineNo,
			Content:  numbered[idx+1:],
		})
	}
	return lines, nil
}

// ChangesForCommit derives the change set between a commit and its
// single parent from a structural diff. The first output line carries
// the parent id; when it is empty the commit is the initial one and may
// only introduce additions, which the parser enforces.
func (s *Service) ChangesForCommit(ctx context.Context, commitID string) (*models.ChangeSet, error) {
	opts := []string{"-r", "--root", "--pretty=format:%P"}
	out, err := s.run.Execute(ctx, CmdDiffTree, opts, []string{commitID}, true)
	if err != nil {
		return nil, err
	}

	set := &models.ChangeSet{Commit: commitID}
	lines := strings.Split(out, "\n")
	if len(lines) == 0 {
		return set, nil
	}
	set.Parent = strings.TrimSpace(lines[0])

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		// :000000 100644 <blob-before> <blob-after> S\tpath[\tpath2]
		tokens := strings.FieldsFunc(line, func(r rune) bool {
			return r == ' ' || r == '\t'
		})
		if len(tokens) <= 5 {
			return nil, &ParseError{Format: "diff-tree", Line: line, Reason: "expected at least 6 tokens"}
		}
		st := status.Classify(tokens[4][:1])
		if set.Parent == "" && st != models.StatusAdded {
			return nil, &ParseError{Format: "diff-tree", Line: line, Reason: "initial commit entry is not an addition"}
		}
		change := models.Change{
			Status:     st,
			BlobBefore: tokens[2],
			BlobAfter:  tokens[3],
		}
		first := s.root + "/" + tokens[5]
		switch st {
		case models.StatusAdded:
			change.AfterPath = first
		case models.StatusDeleted:
			change.BeforePath = first
		case models.StatusCopy, models.StatusRename:
			change.BeforePath = first
			if len(tokens) > 6 {
				change.AfterPath = s.root + "/" + tokens[6]
			}
		default:
			change.BeforePath = first
			change.AfterPath = first
		}
		set.Changes = append(set.Changes, change)
	}
	return set, nil
}

package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/chmouel/gitmon/internal/log"
)

const (
	// initialBufSize is the starting capacity of the output buffer.
	initialBufSize = 16 * 1024
	// maxBufAllowed is the hard ceiling on captured output.
	maxBufAllowed = 128 * 1024 * 1024
	// noHeadMarker is what git prints when asked to diff in a
	// repository that has no commits yet.
	noHeadMarker = "No HEAD commit to compare with"
)

// Invoker executes a single git command and returns its combined
// output. *Runner is the real implementation; tests substitute fakes.
type Invoker interface {
	Execute(ctx context.Context, cmd Command, options, args []string, silent bool) (string, error)
}

// Runner spawns the external git binary with the repository root as
// working directory and captures stdout+stderr merged into one buffer.
type Runner struct {
	// Binary is the git executable; "git" resolves through PATH.
	Binary string
	// Root is the repository root, used as working directory and to
	// derive GIT_DIR when the host environment does not set one.
	Root string
	// Timeout, when positive, kills the child process after the given
	// duration. Zero preserves the historical wait-forever behavior.
	Timeout time.Duration
	// MaxOutput overrides the output ceiling; zero means maxBufAllowed.
	// Values above maxBufAllowed are clamped.
	MaxOutput int
}

// NewRunner builds a Runner for the repository rooted at root.
func NewRunner(binary, root string) *Runner {
	if binary == "" {
		binary = "git"
	}
	return &Runner{Binary: binary, Root: root}
}

func (r *Runner) limit() int {
	if r.MaxOutput <= 0 || r.MaxOutput > maxBufAllowed {
		return maxBufAllowed
	}
	return r.MaxOutput
}

// environ returns the host environment with GIT_DIR ensured. The
// inherited value wins when the host already sets one.
func (r *Runner) environ() []string {
	env := os.Environ()
	for _, kv := range env {
		if strings.HasPrefix(kv, "GIT_DIR=") {
			return env
		}
	}
	return append(env, "GIT_DIR="+filepath.Join(r.Root, ".git"))
}

// Execute runs one git command. Options come before args in the
// argument vector; empty entries in either list are skipped. The
// returned text is the combined stdout+stderr exactly as captured, no
// trimming.
//
// Error contract: *LaunchError when the process cannot start,
// ErrOutputLimit when output exceeds the cap, *ExecError on non-zero
// exit. A wait interrupted by context cancellation returns ("", nil):
// best effort, no output, not a failure. Zero bytes of output also
// return ("", nil) without inspecting the exit code.
func (r *Runner) Execute(ctx context.Context, cmd Command, options, args []string, silent bool) (string, error) {
	argv := make([]string, 0, 1+len(options)+len(args))
	argv = append(argv, cmd.String())
	for _, o := range options {
		if o != "" {
			argv = append(argv, o)
		}
	}
	for _, a := range args {
		if a != "" {
			argv = append(argv, a)
		}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	if !silent {
		log.Printf("run: %s %s (cwd=%s)", r.Binary, strings.Join(argv, " "), r.Root)
	}

	// #nosec G204 -- the subcommand comes from the closed Command enum
	// and options/args are built by the facade, never shell interpolated
	c := exec.CommandContext(ctx, r.Binary, argv...)
	c.Dir = r.Root
	c.Env = r.environ()

	// Merge stderr into stdout through a single pipe so the capture
	// loop sees one interleaved stream, the way git intended its
	// diagnostics to be read alongside output.
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", &LaunchError{Binary: r.Binary, Err: err}
	}
	c.Stdout = pw
	c.Stderr = pw

	if err := c.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return "", &LaunchError{Binary: r.Binary, Err: err}
	}
	// The child holds its own copy of the write end; close ours so the
	// read loop sees EOF when the child exits.
	_ = pw.Close()
	defer func() { _ = pr.Close() }()

	bufSize := initialBufSize
	if cmd == CmdShow || cmd == CmdBlame {
		// File contents and annotations tend to be big; start larger.
		bufSize = initialBufSize * 8
	}

	out, rerr := r.capture(pr, bufSize)
	if rerr != nil {
		_ = c.Process.Kill()
		_ = c.Wait()
		return "", rerr
	}

	werr := c.Wait()
	if ctx.Err() != nil {
		// Interrupted while waiting: stop waiting, report nothing.
		// The process may keep running; that is accepted.
		return "", nil
	}
	if len(out) == 0 {
		return "", nil
	}

	text := string(out)
	if cmd == CmdDiff && strings.Contains(text, noHeadMarker) {
		// Fresh repository with no commits: a successful empty diff.
		return "", nil
	}

	if werr != nil {
		var ee *exec.ExitError
		if errors.As(werr, &ee) {
			return "", &ExecError{Command: cmd, Code: ee.ExitCode(), Output: text}
		}
		return "", &LaunchError{Binary: r.Binary, Err: werr}
	}
	return text, nil
}

// capture reads the stream into a buffer that starts at bufSize and
// doubles on overflow, copying prior bytes forward. Doubling bounds the
// reallocation count to O(log n) of the output size; a plain append
// would not give that guarantee for the read sizes involved. Output
// past the configured ceiling fails with ErrOutputLimit, even when the
// ceiling is smaller than the initial buffer.
func (r *Runner) capture(src *os.File, bufSize int) ([]byte, error) {
	workBuf := make([]byte, bufSize)
	retBuf := make([]byte, bufSize)
	wpos := 0
	for {
		n, err := src.Read(workBuf)
		if n > 0 {
			if wpos+n > r.limit() {
				return nil, ErrOutputLimit
			}
			if wpos+n > len(retBuf) {
				if len(retBuf)*2 >= r.limit() {
					return nil, ErrOutputLimit
				}
				grown := make([]byte, len(retBuf)*2)
				copy(grown, retBuf[:wpos])
				retBuf = grown
			}
			copy(retBuf[wpos:], workBuf[:n])
			wpos += n
		}
		if err != nil {
			// EOF or a broken pipe after the child died both end the
			// capture; whatever was read still counts.
			return retBuf[:wpos], nil
		}
	}
}

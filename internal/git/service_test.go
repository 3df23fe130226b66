package git

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	cmd     Command
	options []string
	args    []string
}

// fakeInvoker records invocations and replays canned outputs in order.
type fakeInvoker struct {
	mu    sync.Mutex
	calls []invocation
	outs  []string
	err   error
	hook  func(cmd Command, options, args []string)
}

func (f *fakeInvoker) Execute(_ context.Context, cmd Command, options, args []string, _ bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{cmd: cmd, options: options, args: args})
	var out string
	if len(f.outs) > 0 {
		out = f.outs[0]
		f.outs = f.outs[1:]
	}
	err := f.err
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(cmd, options, args)
	}
	return out, err
}

func (f *fakeInvoker) recorded() []invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]invocation(nil), f.calls...)
}

func TestAddRelativizesPaths(t *testing.T) {
	fake := &fakeInvoker{}
	svc := NewService("/repo", fake, nil)

	_, err := svc.Add(context.Background(), []string{"/repo/a.txt", "", "/repo/sub/b.txt"})
	require.NoError(t, err)

	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, CmdAdd, calls[0].cmd)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, calls[0].args)
}

func TestCommitStagesFirstAndStripsComments(t *testing.T) {
	var messageFile string
	var message []byte
	fake := &fakeInvoker{}
	fake.hook = func(cmd Command, options, _ []string) {
		if cmd != CmdCommit {
			return
		}
		require.Len(t, options, 2)
		require.Equal(t, "-F", options[0])
		messageFile = options[1]
		data, err := os.ReadFile(messageFile) // #nosec G304
		require.NoError(t, err)
		message = data
	}
	svc := NewService("/repo", fake, nil)

	_, err := svc.Commit(context.Background(), []string{"/repo/a.txt"}, "subject\n# a comment\nbody")
	require.NoError(t, err)

	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, CmdAdd, calls[0].cmd)
	assert.Equal(t, CmdCommit, calls[1].cmd)
	assert.Equal(t, "subject\nbody\n", string(message))

	// The temp file is cleaned up after the commit.
	_, statErr := os.Stat(messageFile)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCommitWithEmptyFileListStillStagesFirst(t *testing.T) {
	fake := &fakeInvoker{}
	svc := NewService("/repo", fake, nil)

	_, err := svc.Commit(context.Background(), nil, "message\n# dropped")
	require.NoError(t, err)

	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, CmdAdd, calls[0].cmd)
	assert.Empty(t, calls[0].args)
	assert.Equal(t, CmdCommit, calls[1].cmd)
}

func TestStripCommentLines(t *testing.T) {
	assert.Equal(t, "a\nb\n", stripCommentLines("a\n#x\nb"))
	assert.Equal(t, "\n", stripCommentLines(""))
	assert.Equal(t, "keep # inline\n", stripCommentLines("keep # inline"))
}

func TestCheckout(t *testing.T) {
	t.Run("existing branch", func(t *testing.T) {
		fake := &fakeInvoker{}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Checkout(context.Background(), "feature", false)
		require.NoError(t, err)
		calls := fake.recorded()
		require.Len(t, calls, 1)
		assert.Empty(t, calls[0].options)
		assert.Equal(t, []string{"feature"}, calls[0].args)
	})

	t.Run("create tracking branch", func(t *testing.T) {
		fake := &fakeInvoker{}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Checkout(context.Background(), "feature", true)
		require.NoError(t, err)
		calls := fake.recorded()
		require.Len(t, calls, 1)
		assert.Equal(t, []string{"--track", "-b"}, calls[0].options)
	})
}

func TestPullRunsSecondTagsPass(t *testing.T) {
	t.Run("with merge", func(t *testing.T) {
		fake := &fakeInvoker{outs: []string{"one\n", "two\n"}}
		svc := NewService("/repo", fake, nil)

		out, err := svc.Pull(context.Background(), "origin", true)
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo\n", out)

		calls := fake.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, CmdPull, calls[0].cmd)
		assert.Equal(t, CmdPull, calls[1].cmd)
		assert.Empty(t, calls[0].options)
		assert.Equal(t, []string{"--tags"}, calls[1].options)
	})

	t.Run("fetch only", func(t *testing.T) {
		fake := &fakeInvoker{}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Pull(context.Background(), "origin", false)
		require.NoError(t, err)
		calls := fake.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, CmdFetch, calls[0].cmd)
		assert.Equal(t, CmdFetch, calls[1].cmd)
	})
}

func TestPushRunsSecondTagsPass(t *testing.T) {
	fake := &fakeInvoker{}
	svc := NewService("/repo", fake, nil)

	_, err := svc.Push(context.Background())
	require.NoError(t, err)
	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, CmdPush, calls[0].cmd)
	assert.Equal(t, []string{"--tags"}, calls[1].options)
}

func TestRevert(t *testing.T) {
	t.Run("freshly added file is removed from the index", func(t *testing.T) {
		fake := &fakeInvoker{outs: []string{"A\tnew.txt"}}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Revert(context.Background(), []string{"/repo/new.txt"})
		require.NoError(t, err)

		calls := fake.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, CmdDiff, calls[0].cmd)
		assert.Equal(t, CmdUpdateIndex, calls[1].cmd)
		assert.Equal(t, []string{"--force-remove", "--"}, calls[1].options)
		assert.Equal(t, []string{"new.txt"}, calls[1].args)
	})

	t.Run("modified file is checked out from HEAD", func(t *testing.T) {
		fake := &fakeInvoker{outs: []string{"M\tmod.txt"}}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Revert(context.Background(), []string{"/repo/mod.txt"})
		require.NoError(t, err)

		calls := fake.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, CmdCheckout, calls[1].cmd)
		assert.Equal(t, []string{"HEAD", "--"}, calls[1].options)
	})

	t.Run("unstaged file is checked out from HEAD", func(t *testing.T) {
		fake := &fakeInvoker{outs: []string{""}}
		svc := NewService("/repo", fake, nil)

		_, err := svc.Revert(context.Background(), []string{"/repo/plain.txt"})
		require.NoError(t, err)

		calls := fake.recorded()
		require.Len(t, calls, 2)
		assert.Equal(t, CmdCheckout, calls[1].cmd)
	})
}

func TestUnstashAppliesNamedStash(t *testing.T) {
	fake := &fakeInvoker{}
	svc := NewService("/repo", fake, nil)

	_, err := svc.Unstash(context.Background(), "wip")
	require.NoError(t, err)
	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, CmdStash, calls[0].cmd)
	assert.Equal(t, []string{"apply", "wip"}, calls[0].args)
}

func TestWriteGateSerializesAcrossServices(t *testing.T) {
	var mu sync.Mutex
	active, maxActive := 0, 0
	hook := func(Command, []string, []string) {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
	}

	gate := NewWriteGate()
	svcA := NewService("/repo-a", &fakeInvoker{hook: hook}, gate)
	svcB := NewService("/repo-b", &fakeInvoker{hook: hook}, gate)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svcA.Add(context.Background(), []string{"/repo-a/f.txt"})
		}()
		go func() {
			defer wg.Done()
			_, _ = svcB.Tag(context.Background(), "v1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive, "mutating operations must never overlap")
}

package paths

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelative(t *testing.T) {
	t.Run("path inside root", func(t *testing.T) {
		assert.Equal(t, "a/b.txt", Relative("/repo/a/b.txt", "/repo"))
	})

	t.Run("root itself maps to dot", func(t *testing.T) {
		assert.Equal(t, ".", Relative("/repo", "/repo"))
	})

	t.Run("path outside root is unchanged", func(t *testing.T) {
		assert.Equal(t, "/elsewhere/f.txt", Relative("/elsewhere/f.txt", "/repo"))
	})

	t.Run("backslashes are normalized", func(t *testing.T) {
		assert.Equal(t, "dir/f.txt", Relative(`C:\repo\dir\f.txt`, `C:\repo`))
	})

	t.Run("outside path keeps normalization", func(t *testing.T) {
		assert.Equal(t, "D:/other/f.txt", Relative(`D:\other\f.txt`, `C:\repo`))
	})
}

// Package paths translates host absolute paths into repository-relative
// ones, the form the git binary expects for positional arguments.
package paths

import "strings"

// Relative converts path to a slash-normalized path relative to root.
// A path outside root is returned unchanged (normalized); detecting
// out-of-root paths is the caller's job. The root itself maps to ".".
func Relative(path, root string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	r := strings.ReplaceAll(root, "\\", "/")
	if !strings.HasPrefix(p, r) {
		return p
	}
	if p == r {
		return "."
	}
	return p[len(r)+1:]
}

// Package status maps the one-letter codes git prints onto the semantic
// file-status model and caches per-path control classification.
package status

import "github.com/chmouel/gitmon/internal/models"

var statusCodes = map[string]models.FileStatus{
	"M": models.StatusModified,
	"H": models.StatusModified, // content hash match variant
	"C": models.StatusCopy,
	"R": models.StatusRename,
	"A": models.StatusAdded,
	"D": models.StatusDeleted,
	"U": models.StatusUnmerged,
	"X": models.StatusUnversioned,
}

// Classify maps a one-letter status code to a FileStatus. Codes outside
// the known table map to StatusUnmodified: git occasionally grows new
// codes and treating them as failures would break every caller, so the
// fallback is deliberate leniency rather than an error.
func Classify(code string) models.FileStatus {
	if st, ok := statusCodes[code]; ok {
		return st
	}
	return models.StatusUnmodified
}

// Package models defines the data objects shared across gitmon packages.
package models

import "time"

// FileStatus is the semantic status of a file as reported by git.
type FileStatus int

// File statuses derived from the one-letter codes git prints in
// name-status and diff-tree listings.
const (
	StatusUnmodified FileStatus = iota
	StatusModified
	StatusCopy
	StatusRename
	StatusAdded
	StatusDeleted
	StatusUnmerged
	StatusUnversioned
)

var statusNames = map[FileStatus]string{
	StatusUnmodified:  "unmodified",
	StatusModified:    "modified",
	StatusCopy:        "copy",
	StatusRename:      "rename",
	StatusAdded:       "added",
	StatusDeleted:     "deleted",
	StatusUnmerged:    "unmerged",
	StatusUnversioned: "unversioned",
}

func (s FileStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// TrackedFile is a (path, status) pair produced by diff parsing. It is
// rebuilt on every invocation and never mutated in place.
type TrackedFile struct {
	Path   string
	Status FileStatus
}

// Branch describes one entry of a branch listing.
type Branch struct {
	Name   string
	Active bool // marked with "* " in the listing
	Remote bool // name contains a "/" separator
}

// Revision is one commit from a log listing. ID is the opaque revision
// identifier git printed; it is used as an identity key only.
type Revision struct {
	ID      string
	Author  string
	Time    time.Time
	Subject string
}

// AnnotationLine is a single line from a blame listing.
type AnnotationLine struct {
	Revision string
	Author   string
	Time     time.Time
	Line     int64
	Content  string
}

// Change is one entry of a structural diff between a commit and its
// parent. BeforePath/AfterPath are absolute; either may be empty
// depending on the status (no before for additions, no after for
// deletions).
type Change struct {
	Status     FileStatus
	BeforePath string
	AfterPath  string
	BlobBefore string
	BlobAfter  string
}

// ChangeSet is the ordered list of changes introduced by a commit.
// Parent is empty for an initial commit; in that case every change must
// be an addition, an invariant the parser enforces.
type ChangeSet struct {
	Commit  string
	Parent  string
	Changes []Change
}

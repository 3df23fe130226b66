// Package git wraps the external git binary: building argument vectors,
// spawning the process, capturing combined output, and exposing typed
// operations over the raw text the tool prints.
package git

// Command identifies a git subcommand the runner knows how to spawn.
// The set is closed so that an invalid command cannot reach the process
// boundary; each constant carries its own subcommand name.
type Command int

const (
	CmdVersion Command = iota
	CmdAdd
	CmdBlame
	CmdBranch
	CmdCheckout
	CmdClone
	CmdCommit
	CmdConfig
	CmdDiff
	CmdDiffTree
	CmdFetch
	CmdGC
	CmdLog
	CmdLsFiles
	CmdMerge
	CmdMove
	CmdPull
	CmdPush
	CmdRebase
	CmdRemove
	CmdShow
	CmdStash
	CmdTag
	CmdUpdateIndex
)

var commandNames = map[Command]string{
	CmdVersion:     "version",
	CmdAdd:         "add",
	CmdBlame:       "blame",
	CmdBranch:      "branch",
	CmdCheckout:    "checkout",
	CmdClone:       "clone",
	CmdCommit:      "commit",
	CmdConfig:      "config",
	CmdDiff:        "diff",
	CmdDiffTree:    "diff-tree",
	CmdFetch:       "fetch",
	CmdGC:          "gc",
	CmdLog:         "log",
	CmdLsFiles:     "ls-files",
	CmdMerge:       "merge",
	CmdMove:        "mv",
	CmdPull:        "pull",
	CmdPush:        "push",
	CmdRebase:      "rebase",
	CmdRemove:      "rm",
	CmdShow:        "show",
	CmdStash:       "stash",
	CmdTag:         "tag",
	CmdUpdateIndex: "update-index",
}

// String returns the git subcommand name.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

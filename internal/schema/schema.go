package schema

import "sort"

// Kind classifies how a flag's value is encoded on the restic command line.
type Kind int

const (
	// KindSingle takes exactly one value, emitted as --name=value.
	KindSingle Kind = iota
	// KindBool takes no value, emitted as a bare --name.
	KindBool
	// KindList is repeatable, emitted as --name value per value.
	KindList
	// KindFile is a content-reference flag: its value is the path of the
	// profile entry that defines it, emitted as --name=path.
	KindFile
	// KindPositional values are appended bare after all named flags.
	KindPositional
	// KindScript marks the pre/post hook pseudo-flags.
	KindScript
	// KindInherit marks the inherit pseudo-flag.
	KindInherit
)

// flags maps every known flag name to its kind.
var flags = map[string]Kind{
	"group-by":          KindSingle,
	"key-hint":          KindSingle,
	"keep-daily":        KindSingle,
	"keep-hourly":       KindSingle,
	"keep-last":         KindSingle,
	"keep-monthly":      KindSingle,
	"keep-weekly":       KindSingle,
	"keep-within":       KindSingle,
	"keep-yearly":       KindSingle,
	"limit-download":    KindSingle,
	"limit-upload":      KindSingle,
	"max-age":           KindSingle,
	"mode":              KindSingle,
	"newest":            KindSingle,
	"oldest":            KindSingle,
	"parent":            KindSingle,
	"password-command":  KindSingle,
	"read-data-subset":  KindSingle,
	"remove":            KindSingle,
	"remove-all":        KindSingle,
	"repo":              KindSingle,
	"set":               KindSingle,
	"snapshot":          KindSingle,
	"snapshot-template": KindSingle,
	"stdin-filename":    KindSingle,
	"target":            KindSingle,
	"time":              KindSingle,
	"tls-client-cert":   KindSingle,
	"verbose":           KindSingle,

	"add":                KindList,
	"exclude":            KindList,
	"exclude-if-present": KindList,
	"files-from":         KindList,
	"host":               KindList,
	"iexclude":           KindList,
	"iinclude":           KindList,
	"include":            KindList,
	"keep-tag":           KindList,
	"path":               KindList,
	"tag":                KindList,

	"allow-other":            KindBool,
	"allow-root":             KindBool,
	"blob":                   KindBool,
	"check-unused":           KindBool,
	"cleanup":                KindBool,
	"cleanup-cache":          KindBool,
	"compact":                KindBool,
	"dry-run":                KindBool,
	"exclude-caches":         KindBool,
	"force":                  KindBool,
	"ignore-case":            KindBool,
	"ignore-inode":           KindBool,
	"json":                   KindBool,
	"last":                   KindBool,
	"long":                   KindBool,
	"metadata":               KindBool,
	"no-cache":               KindBool,
	"no-default-permissions": KindBool,
	"no-lock":                KindBool,
	"no-size":                KindBool,
	"one-file-system":        KindBool,
	"owner-root":             KindBool,
	"pack":                   KindBool,
	"prune":                  KindBool,
	"quiet":                  KindBool,
	"read-data":              KindBool,
	"recursive":              KindBool,
	"show-pack-id":           KindBool,
	"stdin":                  KindBool,
	"tree":                   KindBool,
	"verify":                 KindBool,
	"with-atime":             KindBool,
	"with-cache":             KindBool,

	"cacert":        KindFile,
	"cache-dir":     KindFile,
	"exclude-file":  KindFile,
	"include-file":  KindFile,
	"password-file": KindFile,

	"dir":        KindPositional,
	"filedir":    KindPositional,
	"mountpoint": KindPositional,
	"objects":    KindPositional,
	"pattern":    KindPositional,
	"snapshotid": KindPositional,

	"pre":  KindScript,
	"post": KindScript,

	"inherit": KindInherit,
}

// common lists flags accepted by every command.
var common = []string{
	"inherit", "pre", "post",
	"cacert", "cache-dir", "cleanup-cache",
	"json", "key-hint", "limit-download", "limit-upload",
	"no-cache", "no-lock", "password-command", "password-file",
	"quiet", "repo", "tls-client-cert", "verbose",
}

// commands lists, per restic command, the flags accepted beyond common.
var commands = map[string][]string{
	"backup": {
		"exclude", "exclude-file", "exclude-caches",
		"exclude-if-present", "files-from",
		"force", "host", "iexclude", "ignore-inode",
		"one-file-system", "parent", "stdin",
		"stdin-filename", "tag", "time", "with-atime", "filedir",
	},
	"cache": {"cleanup", "max-age", "no-size"},
	"cat":   {"objects"},
	"check": {"check-unused", "read-data", "read-data-subset", "with-cache"},
	"diff":  {"metadata", "snapshotid"},
	"dump":  {"host", "path", "tag"},
	"find": {
		"blob", "ignore-case", "long", "newest", "oldest", "host",
		"pack", "path", "show-pack-id", "snapshot", "tag", "tree", "pattern",
	},
	"forget": {
		"path", "keep-tag", "tag", "host", "keep-within",
		"keep-last", "keep-hourly", "keep-daily",
		"keep-weekly", "keep-monthly", "keep-yearly",
		"compact", "group-by", "dry-run", "prune", "snapshotid",
	},
	"init": {},
	"list": {"objects"},
	"ls":   {"host", "long", "path", "recursive", "tag", "snapshotid", "dir"},
	"mount": {
		"allow-other", "allow-root", "host",
		"no-default-permissions",
		"owner-root", "path", "snapshot-template",
		"tag", "mountpoint",
	},
	"prune":         {},
	"rebuild-index": {},
	"recover":       {},
	"restore": {
		"exclude", "host", "iexclude", "iinclude",
		"include", "include-file", "path", "tag", "target", "verify", "snapshotid",
	},
	"snapshots": {"compact", "group-by", "host", "last", "path", "tag", "snapshotid"},
	"stats":     {"host", "mode", "snapshotid"},
	"tag":       {"add", "host", "path", "remove", "set", "tag", "snapshotid"},
	"unlock":    {"remove-all"},

	// Pseudo commands handled by restaround itself, never passed to restic.
	CmdCopyRepo:   {},
	CmdRemoveRepo: {},
}

// Pseudo commands that operate on a hard-linked copy of the repository.
const (
	CmdCopyRepo   = "cprepo"
	CmdRemoveRepo = "rmrepo"
)

// accepts[command] is the full set of flags the command takes,
// common flags included.
var accepts = buildAccepts()

func buildAccepts() map[string]map[string]bool {
	result := make(map[string]map[string]bool, len(commands))
	for cmd, own := range commands {
		set := make(map[string]bool, len(own)+len(common))
		for _, f := range common {
			set[f] = true
		}
		for _, f := range own {
			set[f] = true
		}
		result[cmd] = set
	}
	return result
}

// IsCommand reports whether name is a known command, pseudo commands included.
func IsCommand(name string) bool {
	_, ok := commands[name]
	return ok
}

// IsSpecial reports whether name is a pseudo command restaround intercepts.
func IsSpecial(name string) bool {
	return name == CmdCopyRepo || name == CmdRemoveRepo
}

// FlagKind returns the kind of a known flag name.
func FlagKind(name string) (Kind, bool) {
	k, ok := flags[name]
	return k, ok
}

// IsFlag reports whether name is a known flag name.
func IsFlag(name string) bool {
	_, ok := flags[name]
	return ok
}

// Reserved reports whether name is consumed by restaround itself and must
// never reach the restic command line.
func Reserved(name string) bool {
	return name == "inherit" || name == "pre" || name == "post"
}

// Accepts reports whether command takes the given flag. Unknown commands
// accept nothing.
func Accepts(command, flag string) bool {
	return accepts[command][flag]
}

// Commands returns all known command names, sorted.
func Commands() []string {
	result := make([]string, 0, len(commands))
	for cmd := range commands {
		result = append(result, cmd)
	}
	sort.Strings(result)
	return result
}

// AcceptedFlags returns all flags the command takes, sorted.
// Returns nil for unknown commands.
func AcceptedFlags(command string) []string {
	set, ok := accepts[command]
	if !ok {
		return nil
	}
	result := make([]string, 0, len(set))
	for f := range set {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}

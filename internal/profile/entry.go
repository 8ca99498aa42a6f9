package profile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wrohdewald/restaround/internal/schema"
)

// Directive is one decoded profile entry. The file name encodes target
// command, negation, flag name and optional inline values; the file content
// or the file's own path supplies the values otherwise.
type Directive struct {
	Path    string // absolute path of the defining file, symlinks resolved
	Name    string // file name within the profile directory
	Command string // command scope, "" applies to all commands
	Negate  bool
	Flag    string
	Values  []string
}

// Decode parses one profile entry file into a Directive.
//
// The name grammar is [command_][no_]flagname[_value]*. A leading command
// token is only recognized when what follows still parses as a directive,
// and "no" is only treated as negation when it is not itself the flag name.
// Unknown flag names decode fine; whether they are an error is decided by
// the composer.
func Decode(path string) (*Directive, error) {
	d := &Directive{Name: filepath.Base(path)}

	parts := strings.Split(d.Name, "_")
	if len(parts) > 1 && schema.IsCommand(parts[0]) && flagFollows(parts[1:]) {
		d.Command = parts[0]
		parts = parts[1:]
	}
	if parts[0] == "no" && len(parts) > 1 {
		d.Negate = true
		parts = parts[1:]
	}
	d.Flag = parts[0]
	inline := parts[1:]

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: resolving symlink: %v", ErrConfig, path, err)
	}
	if d.Path, err = filepath.Abs(resolved); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}

	// A negation carries no values of its own.
	if d.Negate {
		return d, nil
	}

	kind, known := schema.FlagKind(d.Flag)
	if known && (kind == schema.KindFile || kind == schema.KindScript) {
		if len(inline) > 0 {
			return nil, fmt.Errorf("%w: %s: %s takes the file itself, not inline values",
				ErrConfig, path, d.Flag)
		}
		d.Values = []string{d.Path}
		return d, nil
	}

	if len(inline) > 0 {
		info, err := os.Stat(d.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
		}
		if info.Size() != 0 {
			return nil, fmt.Errorf("%w: %s: file must be empty when the name carries values",
				ErrConfig, path)
		}
		d.Values = inline
	} else {
		if d.Values, err = fileLines(d.Path); err != nil {
			return nil, err
		}
	}

	if known && kind == schema.KindSingle && len(d.Values) > 1 {
		return nil, fmt.Errorf("%w: %s: must define only one value for %s",
			ErrConfig, path, d.Flag)
	}
	return d, nil
}

// flagFollows reports whether the remaining name parts still name a known
// flag, so that a leading command token may be split off.
func flagFollows(parts []string) bool {
	if parts[0] == "no" && len(parts) > 1 {
		parts = parts[1:]
	}
	return schema.IsFlag(parts[0])
}

// fileLines returns the stripped, non-empty content lines of path.
// Lines starting with # are comments and skipped.
func fileLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return lines, nil
}

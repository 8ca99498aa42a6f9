package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultProfile is applied first in every resolution.
const DefaultProfile = "default"

// Profile is a named directory of decoded directives.
type Profile struct {
	Name    string
	Dir     string
	Entries []Directive
}

// Load reads and decodes every regular file in dir, in file name order.
// Subdirectories are skipped.
func Load(name, dir string) (*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", name, err)
	}

	p := &Profile{Name: name, Dir: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		d, err := Decode(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		p.Entries = append(p.Entries, *d)
	}
	return p, nil
}

// Resolver flattens the profile inheritance graph into Resolved Profile
// Order: default first, inherited profiles before the profiles that inherit
// them, the invoked profile after its inherits, and the synthetic
// command-line pseudo-profile last.
type Resolver struct {
	loc     *Locator
	command string
}

// NewResolver creates a resolver for one invocation. The command is needed
// because inherit directives may be scoped to a single command.
func NewResolver(loc *Locator, command string) *Resolver {
	return &Resolver{loc: loc, command: command}
}

// Resolve expands the named profile plus the implicit default profile and
// the optional synthetic args profile into Resolved Profile Order.
// A profile already placed is never re-expanded; re-entering a profile that
// is still being expanded is an inheritance cycle.
func (r *Resolver) Resolve(name string, args *Profile) ([]*Profile, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var stack []string
	var order []*Profile

	var visit func(pname string, required bool) error
	visit = func(pname string, required bool) error {
		switch state[pname] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrInheritanceCycle, cyclePath(stack, pname))
		}
		state[pname] = visiting
		stack = append(stack, pname)
		defer func() { stack = stack[:len(stack)-1] }()

		dir, err := r.loc.Find(pname)
		if err != nil {
			if !required {
				state[pname] = done
				return nil
			}
			return err
		}
		p, err := Load(pname, dir)
		if err != nil {
			return err
		}
		if err := r.visitInherits(p, visit); err != nil {
			return err
		}
		state[pname] = done
		order = append(order, p)
		return nil
	}

	// A missing default profile simply contributes nothing.
	if err := visit(DefaultProfile, false); err != nil {
		return nil, err
	}
	if err := visit(name, true); err != nil {
		return nil, err
	}
	if args != nil {
		if err := r.visitInherits(args, visit); err != nil {
			return nil, err
		}
		order = append(order, args)
	}
	return order, nil
}

// visitInherits expands every inherit directive of p that applies to the
// invoked command, in file name order.
func (r *Resolver) visitInherits(p *Profile, visit func(string, bool) error) error {
	for _, d := range p.Entries {
		if d.Flag != "inherit" {
			continue
		}
		if d.Command != "" && d.Command != r.command {
			continue
		}
		if d.Negate {
			return fmt.Errorf("%w: %s: inherit cannot be negated", ErrConfig, d.Path)
		}
		for _, parent := range d.Values {
			if err := visit(parent, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// cyclePath renders the cycle from its first occurrence on the stack.
func cyclePath(stack []string, repeated string) string {
	for i, name := range stack {
		if name == repeated {
			return strings.Join(append(stack[i:], repeated), " -> ")
		}
	}
	return repeated
}

package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wrohdewald/restaround/internal/schema"
)

// Composition is the result of merging Resolved Profile Order for one
// command: the restic argument vector (everything after the command word)
// and the ordered pre/post script chains.
type Composition struct {
	Args        []string
	PreScripts  []string
	PostScripts []string

	values map[string][]string
}

// FlagValues returns the surviving values of a flag, in emission order.
func (c *Composition) FlagValues(name string) []string {
	return c.values[name]
}

// FlagValue returns the last surviving value of a flag, or "".
func (c *Composition) FlagValue(name string) string {
	v := c.values[name]
	if len(v) == 0 {
		return ""
	}
	return v[len(v)-1]
}

// Composer merges decoded profiles into a Composition.
type Composer struct {
	Command string

	// PassUnknown demotes unknown flag names from a hard error to a
	// warning; the flag is then emitted as a repeatable --name value flag.
	PassUnknown bool

	// Warn receives non-fatal composition diagnostics. May be nil.
	Warn func(format string, args ...any)
}

// accEntry is one accumulated value entry, tagged with the profile it came
// from so that negation can clear strictly earlier profiles only.
type accEntry struct {
	flag       string
	kind       schema.Kind
	profileIdx int
	values     []string
	path       string
	removed    bool
}

// Compose walks the profiles in Resolved Profile Order and merges their
// directives. Within one profile, directives without a command scope apply
// before directives scoped to the invoked command. A negation removes all
// entries for its flag accumulated in strictly earlier profiles; entries
// from the negating profile itself and later profiles survive.
func (c *Composer) Compose(profiles []*Profile) (*Composition, error) {
	var acc []accEntry
	index := make(map[string][]int)

	for i, p := range profiles {
		general, scoped := splitScope(p.Entries, c.Command)
		for _, d := range append(general, scoped...) {
			kind, known := schema.FlagKind(d.Flag)
			switch {
			case !known:
				if !c.PassUnknown {
					return nil, fmt.Errorf("%w: %s (profile %s)", ErrUnknownFlag, d.Flag, p.Name)
				}
				c.warnf("passing unknown flag --%s through (profile %s)", d.Flag, p.Name)
				// Valueless entries come out as a bare switch, valued
				// ones as a repeatable flag.
				kind = schema.KindList
				if len(d.Values) == 0 && !d.Negate {
					kind = schema.KindBool
				}
			case kind == schema.KindInherit:
				// Consumed by the resolver.
				continue
			case !schema.Accepts(c.Command, d.Flag):
				// Known flag, but not for this command: shared profiles
				// carry flags for several commands.
				continue
			}

			if d.Negate {
				for _, j := range index[d.Flag] {
					if acc[j].profileIdx < i {
						acc[j].removed = true
					}
				}
				continue
			}
			acc = append(acc, accEntry{
				flag:       d.Flag,
				kind:       kind,
				profileIdx: i,
				values:     d.Values,
				path:       d.Path,
			})
			index[d.Flag] = append(index[d.Flag], len(acc)-1)
		}
	}

	return emit(acc, index)
}

// splitScope partitions entries into unscoped ones and ones scoped to the
// invoked command, preserving file name order within each group. Entries
// scoped to other commands are dropped.
func splitScope(entries []Directive, command string) (general, scoped []Directive) {
	for _, d := range entries {
		switch d.Command {
		case "":
			general = append(general, d)
		case command:
			scoped = append(scoped, d)
		}
	}
	return general, scoped
}

// emit produces the final argument vector: named flags in the order their
// first surviving entry was accumulated, positional values after all named
// flags, scripts diverted into their chains.
func emit(acc []accEntry, index map[string][]int) (*Composition, error) {
	comp := &Composition{values: make(map[string][]string)}
	var named, positional []string
	emitted := make(map[string]bool)

	for _, e := range acc {
		if e.removed || emitted[e.flag] {
			continue
		}
		emitted[e.flag] = true

		var surviving []accEntry
		for _, j := range index[e.flag] {
			if !acc[j].removed {
				surviving = append(surviving, acc[j])
			}
		}

		switch e.kind {
		case schema.KindScript:
			for _, s := range surviving {
				for _, v := range s.values {
					if e.flag == "pre" {
						comp.PreScripts = append(comp.PreScripts, v)
					} else {
						comp.PostScripts = append(comp.PostScripts, v)
					}
				}
			}

		case schema.KindBool:
			on, err := boolValue(surviving)
			if err != nil {
				return nil, err
			}
			if on {
				named = append(named, "--"+e.flag)
				comp.values[e.flag] = []string{"true"}
			}

		case schema.KindSingle:
			var last string
			for _, s := range surviving {
				if len(s.values) > 0 {
					last = s.values[len(s.values)-1]
				}
			}
			if last != "" {
				named = append(named, "--"+e.flag+"="+last)
				comp.values[e.flag] = []string{last}
			}

		case schema.KindFile:
			for _, s := range surviving {
				for _, v := range s.values {
					named = append(named, "--"+e.flag+"="+v)
					comp.values[e.flag] = append(comp.values[e.flag], v)
				}
			}

		case schema.KindList:
			for _, s := range surviving {
				for _, v := range s.values {
					named = append(named, "--"+e.flag, v)
					comp.values[e.flag] = append(comp.values[e.flag], v)
				}
			}

		case schema.KindPositional:
			for _, s := range surviving {
				positional = append(positional, s.values...)
				comp.values[e.flag] = append(comp.values[e.flag], s.values...)
			}
		}
	}

	comp.Args = append(named, positional...)
	return comp, nil
}

// boolValue decides whether a boolean flag is switched on. A valueless
// entry means on; otherwise the last explicit value decides.
func boolValue(surviving []accEntry) (bool, error) {
	on := false
	for _, s := range surviving {
		if len(s.values) == 0 {
			on = true
			continue
		}
		v, err := strconv.ParseBool(strings.ToLower(s.values[len(s.values)-1]))
		if err != nil {
			return false, fmt.Errorf("%w: %s: not a boolean value: %s",
				ErrConfig, s.path, s.values[len(s.values)-1])
		}
		on = v
	}
	return on, nil
}

func (c *Composer) warnf(format string, args ...any) {
	if c.Warn != nil {
		c.Warn(format, args...)
	}
}

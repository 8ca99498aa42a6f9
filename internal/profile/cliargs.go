package profile

import (
	"fmt"
	"strings"

	"github.com/wrohdewald/restaround/internal/schema"
)

// ArgsProfileName names the synthetic pseudo-profile holding directives
// parsed from the literal command-line arguments after the command word.
const ArgsProfileName = "(command line)"

// ArgsProfile parses restic-style command-line arguments into the synthetic
// pseudo-profile that is applied last in Resolved Profile Order. Recognized
// forms are --name=value, --name value, bare --name for boolean flags, and
// bare words, which become the command's positional values.
func ArgsProfile(command string, args []string) (*Profile, error) {
	p := &Profile{Name: ArgsProfileName}
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}

		name := strings.TrimPrefix(arg, "--")
		var value string
		var hasValue bool
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name, value, hasValue = name[:eq], name[eq+1:], true
		}

		kind, known := schema.FlagKind(name)
		if !hasValue && (!known || kind != schema.KindBool) {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%w: %s needs a value", ErrConfig, arg)
			}
			i++
			value, hasValue = args[i], true
		}

		d := Directive{Flag: name, Name: arg}
		if hasValue {
			d.Values = []string{value}
		}
		p.Entries = append(p.Entries, d)
	}

	if len(positional) > 0 {
		flag, ok := positionalFlag(command)
		if !ok {
			return nil, fmt.Errorf("%w: command %s takes no positional arguments: %s",
				ErrConfig, command, strings.Join(positional, " "))
		}
		p.Entries = append(p.Entries, Directive{
			Flag:   flag,
			Name:   flag,
			Values: positional,
		})
	}
	return p, nil
}

// positionalFlag returns the positional flag the command accepts, if any.
func positionalFlag(command string) (string, bool) {
	for _, f := range schema.AcceptedFlags(command) {
		if k, _ := schema.FlagKind(f); k == schema.KindPositional {
			return f, true
		}
	}
	return "", false
}

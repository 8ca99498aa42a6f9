package schema

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

// HelpFunc returns the stdout of `restic help [command]`.
type HelpFunc func(args ...string) ([]byte, error)

// ResticHelp returns a HelpFunc spawning the given restic binary.
func ResticHelp(bin string) HelpFunc {
	return func(args ...string) ([]byte, error) {
		out, err := exec.Command(bin, append([]string{"help"}, args...)...).Output()
		if err != nil {
			return nil, fmt.Errorf("%s help: %w", bin, err)
		}
		return out, nil
	}
}

// Commands restaround deliberately does not wrap.
var skipCommands = map[string]bool{
	"help":        true,
	"generate":    true,
	"key":         true,
	"migrate":     true,
	"self-update": true,
	"version":     true,
}

// Flags never reported either way.
var skipFlags = map[string]bool{
	"option": true,
	"help":   true,
}

// SelfTest compares the static command/flag schema against the restic
// binary's own help output and reports drift to w: restic commands the
// schema does not know, restic flags the schema does not carry, and schema
// flags restic no longer supports.
func SelfTest(help HelpFunc, w io.Writer) error {
	out, err := help()
	if err != nil {
		return err
	}
	for _, command := range parseGeneralHelp(out) {
		if skipCommands[command] {
			continue
		}
		if !IsCommand(command) {
			fmt.Fprintf(w, "restic %s is not supported\n", command)
			continue
		}
		cmdOut, err := help(command)
		if err != nil {
			return err
		}
		inHelp := parseCommandHelp(cmdOut)

		mine := make(map[string]bool)
		for _, f := range AcceptedFlags(command) {
			k, _ := FlagKind(f)
			if Reserved(f) || k == KindPositional {
				continue
			}
			mine[f] = true
		}

		for _, flag := range sortedKeys(inHelp) {
			if !mine[flag] && !skipFlags[flag] {
				fmt.Fprintf(w, "WARN: restic %s --%s is not implemented\n", command, flag)
			}
		}
		for _, flag := range sortedKeys(mine) {
			if !inHelp[flag] && !skipFlags[flag] {
				fmt.Fprintf(w, "WARN: restic %s does not support --%s\n", command, flag)
			}
		}
	}
	return nil
}

// parseGeneralHelp extracts the command names from `restic help`.
// A section starts at a line ending in "Commands:" and ends at the next
// blank line.
func parseGeneralHelp(out []byte) []string {
	var commands []string
	inCommands := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			inCommands = false
			continue
		}
		if strings.HasSuffix(line, "Commands:") {
			inCommands = true
			continue
		}
		if inCommands {
			commands = append(commands, strings.Fields(line)[0])
		}
	}
	return commands
}

// parseCommandHelp extracts the long flag names from `restic help command`.
func parseCommandHelp(out []byte) map[string]bool {
	flags := make(map[string]bool)
	headerSeen := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "Flags:" {
			headerSeen = true
			continue
		}
		if !headerSeen || !strings.Contains(line, "--") {
			continue
		}
		after := line[strings.Index(line, "--")+2:]
		if name := strings.FieldsFunc(after, func(r rune) bool {
			return r == ' ' || r == '=' || r == '['
		}); len(name) > 0 && name[0] != "" {
			flags[name[0]] = true
		}
	}
	return flags
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

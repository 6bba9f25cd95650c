package handlers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/imamik/osia/internal/util/prerequisites"
)

// DoctorOptions selects the tools doctor checks.
type DoctorOptions struct {
	Installer   string
	DNSProvider string
	Storage     string
}

var (
	doctorOutput io.Writer = os.Stdout

	checkTools = prerequisites.Check

	isInteractiveTTY = func() bool {
		return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	}
)

// Doctor handles the doctor command. It fails when a required tool is missing.
func Doctor(opts DoctorOptions) error {
	storageKind := opts.Storage
	if storageKind == "" {
		storageKind = "git"
	}
	results := checkTools(prerequisites.ToolsFor(prerequisites.Options{
		Installer:   opts.Installer,
		DNSProvider: opts.DNSProvider,
		Storage:     storageKind,
	}))

	fancy := isInteractiveTTY()
	title := "osia prerequisites"
	fmt.Fprintf(doctorOutput, "\n  %s\n", title)
	fmt.Fprintln(doctorOutput, "  "+strings.Repeat("═", len(title)))
	fmt.Fprintln(doctorOutput)

	for _, result := range results.Results {
		extra := result.Version
		if !result.Found {
			extra = result.Tool.Description
			if !result.Tool.Required {
				extra += " (optional)"
			}
		}
		printRow(doctorOutput, fancy, result.Tool.Name, result.Found, extra)
	}
	fmt.Fprintln(doctorOutput)

	return results.Error()
}

func printRow(w io.Writer, fancy bool, name string, ready bool, extra string) {
	indicator := "[ok]     "
	if !ready {
		indicator = "[missing]"
	}
	if fancy {
		indicator = "\u2705" // green check
		if !ready {
			indicator = "\u274c" // red X
		}
	}

	if extra != "" {
		fmt.Fprintf(w, "  %s  %-20s %s\n", indicator, name, extra)
	} else {
		fmt.Fprintf(w, "  %s  %s\n", indicator, name)
	}
}

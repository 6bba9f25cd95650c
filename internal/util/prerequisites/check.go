// Package prerequisites checks that the external tools an operation shells
// out to are installed.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH, or a path.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// Options selects the tools an operation depends on.
type Options struct {
	// Installer is the installer executable; empty skips the check.
	Installer   string
	DNSProvider string
	Storage     string
}

// ToolsFor returns the tools needed by an operation with opts. Tools the
// options do not require are still listed as optional.
func ToolsFor(opts Options) []Tool {
	var tools []Tool
	if opts.Installer != "" {
		tools = append(tools, Tool{
			Name:        opts.Installer,
			Required:    true,
			Description: "Cluster installer run for create and destroy",
			InstallURL:  "https://mirror.openshift.com/pub/openshift-v4/clients/ocp/",
		})
	}
	tools = append(tools,
		Tool{
			Name:        "git",
			Required:    opts.Storage == "git",
			Description: "Persists cluster directories with --storage git",
			InstallURL:  "https://git-scm.com/downloads",
		},
		Tool{
			Name:        "nsupdate",
			Required:    opts.DNSProvider == "nsupdate",
			Description: "Sends dynamic DNS updates for the nsupdate provider",
			InstallURL:  "https://www.isc.org/bind/",
		},
	)
	return tools
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := exec.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			result.Version = getToolVersion(path)
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// getToolVersion attempts to get the version of a tool.
// Returns empty string if version cannot be determined.
func getToolVersion(name string) string {
	versionFlags := []string{"version", "--version", "-V"}

	for _, flag := range versionFlags {
		// #nosec G204 - name comes from the tool list, not free-form input
		cmd := exec.Command(name, flag)
		output, err := cmd.Output()
		if err == nil {
			lines := strings.Split(string(output), "\n")
			if len(lines) > 0 {
				return strings.TrimSpace(lines[0])
			}
		}
	}

	return ""
}

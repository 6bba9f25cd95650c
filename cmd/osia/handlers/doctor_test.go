package handlers

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/osia/internal/util/prerequisites"
)

func stubDoctor(t *testing.T, found map[string]bool) (*bytes.Buffer, *[]prerequisites.Tool) {
	t.Helper()
	origOutput := doctorOutput
	origCheck := checkTools
	origTTY := isInteractiveTTY
	t.Cleanup(func() {
		doctorOutput = origOutput
		checkTools = origCheck
		isInteractiveTTY = origTTY
	})

	out := &bytes.Buffer{}
	var checked []prerequisites.Tool
	doctorOutput = out
	isInteractiveTTY = func() bool { return false }
	checkTools = func(tools []prerequisites.Tool) *prerequisites.CheckResults {
		checked = tools
		results := &prerequisites.CheckResults{}
		for _, tool := range tools {
			result := prerequisites.CheckResult{Tool: tool, Found: found[tool.Name]}
			if result.Found {
				result.Version = tool.Name + " 1.0"
			} else {
				results.Missing = append(results.Missing, tool)
			}
			results.Results = append(results.Results, result)
		}
		return results
	}
	return out, &checked
}

func TestDoctor_AllPresent(t *testing.T) {
	out, checked := stubDoctor(t, map[string]bool{"openshift-install": true, "git": true, "nsupdate": true})

	require.NoError(t, Doctor(DoctorOptions{Installer: "openshift-install", DNSProvider: "nsupdate"}))
	assert.Len(t, *checked, 3)
	assert.Contains(t, out.String(), "[ok]")
	assert.Contains(t, out.String(), "git 1.0")
	assert.NotContains(t, out.String(), "[missing]")
}

func TestDoctor_MissingRequired(t *testing.T) {
	out, _ := stubDoctor(t, map[string]bool{"openshift-install": true})

	err := Doctor(DoctorOptions{Installer: "openshift-install"})
	require.ErrorContains(t, err, "git")
	assert.NotContains(t, err.Error(), "nsupdate")
	assert.Contains(t, out.String(), "[missing]")
	assert.Contains(t, out.String(), "(optional)")
}

func TestDoctor_StorageWithoutGit(t *testing.T) {
	_, _ = stubDoctor(t, map[string]bool{})

	require.NoError(t, Doctor(DoctorOptions{Storage: "s3"}))
}

func TestPrintRow(t *testing.T) {
	var buf bytes.Buffer
	printRow(&buf, true, "git", true, "git version 2.43.0")
	printRow(&buf, true, "nsupdate", false, "")

	assert.Contains(t, buf.String(), "✅  git")
	assert.Contains(t, buf.String(), "❌  nsupdate")
}

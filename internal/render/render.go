// Package render materializes the installer's install-config.yaml from an
// embedded per-cloud template and the provisioner's template values.
package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/imamik/osia/internal/util/fileutil"
)

// FileName is the rendered document inside the cluster directory.
const FileName = "install-config.yaml"

const templateSuffix = ".yaml.tmpl"

//go:embed templates/*.yaml.tmpl
var templatesFS embed.FS

// Secrets names the files whose contents are injected into the document.
type Secrets struct {
	PullSecretFile string
	SSHKeyFile     string
	// CertificateBundleFile is optional.
	CertificateBundleFile string
}

// ConfigurationFileError is an unreadable or malformed input file.
type ConfigurationFileError struct {
	Path string
	Kind string
	Err  error
}

func (e *ConfigurationFileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConfigurationFileError) Unwrap() error {
	return e.Err
}

// Renderer executes install-config templates.
type Renderer struct {
	templates fs.FS
}

// New returns a renderer over the embedded templates.
func New() *Renderer {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return &Renderer{templates: sub}
}

// NewFromFS returns a renderer reading <name>.yaml.tmpl files from fsys.
func NewFromFS(fsys fs.FS) *Renderer {
	return &Renderer{templates: fsys}
}

// Names returns the available template names in sorted order.
func (r *Renderer) Names() []string {
	entries, err := fs.ReadDir(r.templates, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), templateSuffix) {
			names = append(names, strings.TrimSuffix(e.Name(), templateSuffix))
		}
	}
	sort.Strings(names)
	return names
}

// Render reads the secret files, executes template name with values and
// writes the result atomically to dir/install-config.yaml. It returns the
// path written. values is not modified.
func (r *Renderer) Render(dir, name string, values map[string]any, secrets Secrets) (string, error) {
	data, err := loadSecrets(secrets)
	if err != nil {
		return "", err
	}
	for k, v := range values {
		if _, reserved := data[k]; reserved {
			return "", fmt.Errorf("template value %q collides with a secret", k)
		}
		data[k] = v
	}

	content, err := fs.ReadFile(r.templates, name+templateSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("no template for %q, expected one of %v", name, r.Names())
		}
		return "", fmt.Errorf("failed to read template %s: %w", name, err)
	}

	tmpl, err := template.New(name).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		return "", fmt.Errorf("template %s produced invalid YAML: %w", name, err)
	}

	out := filepath.Join(dir, FileName)
	if err := fileutil.WriteFileAtomic(out, buf.Bytes(), 0o600); err != nil {
		return "", err
	}
	return out, nil
}

func loadSecrets(s Secrets) (map[string]any, error) {
	pullSecret, err := readFile(s.PullSecretFile, "pull secret")
	if err != nil {
		return nil, err
	}
	if !json.Valid(pullSecret) {
		return nil, &ConfigurationFileError{Path: s.PullSecretFile, Kind: "pull secret", Err: errors.New("not valid JSON")}
	}

	sshKey, err := readFile(s.SSHKeyFile, "ssh key")
	if err != nil {
		return nil, err
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey(sshKey); err != nil {
		return nil, &ConfigurationFileError{Path: s.SSHKeyFile, Kind: "ssh key", Err: err}
	}

	bundle := ""
	if s.CertificateBundleFile != "" {
		data, err := readFile(s.CertificateBundleFile, "certificate bundle")
		if err != nil {
			return nil, err
		}
		bundle = strings.TrimRight(string(data), "\n")
	}

	return map[string]any{
		"pull_secret":        strings.TrimSpace(string(pullSecret)),
		"ssh_key":            strings.TrimSpace(string(sshKey)),
		"certificate_bundle": bundle,
	}, nil
}

func readFile(name, kind string) ([]byte, error) {
	if name == "" {
		return nil, &ConfigurationFileError{Path: name, Kind: kind, Err: errors.New("no file configured")}
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, &ConfigurationFileError{Path: name, Kind: kind, Err: err}
	}
	return data, nil
}

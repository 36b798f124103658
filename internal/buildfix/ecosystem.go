package buildfix

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"aura/internal/config"
	auraerrors "aura/internal/errors"
	"aura/internal/runner"
)

// Ecosystem names.
const (
	EcosystemDotnet = "dotnet"
	EcosystemCargo  = "cargo"
	EcosystemGo     = "go"
	EcosystemNpm    = "npm"
)

// Ecosystem describes how to build one kind of project and how to read
// its output.
type Ecosystem struct {
	Name    string
	Command string
	Args    []string
	// TestCommand runs the project's tests.
	TestCommand string
	TestArgs    []string
	Parse       Parser
}

var ecosystems = map[string]Ecosystem{
	EcosystemDotnet: {
		Name: EcosystemDotnet, Command: "dotnet", Args: []string{"build", "--nologo", "-clp:NoSummary"},
		TestCommand: "dotnet", TestArgs: []string{"test", "--nologo"},
		Parse: ParseMSBuild,
	},
	EcosystemCargo: {
		Name: EcosystemCargo, Command: "cargo", Args: []string{"build", "--color", "never"},
		TestCommand: "cargo", TestArgs: []string{"test", "--color", "never"},
		Parse: ParseRust,
	},
	EcosystemGo: {
		Name: EcosystemGo, Command: "go", Args: []string{"build", "./..."},
		TestCommand: "go", TestArgs: []string{"test", "./..."},
		Parse: ParseGo,
	},
	EcosystemNpm: {
		Name: EcosystemNpm, Command: "npx", Args: []string{"tsc", "--noEmit", "--pretty", "false"},
		TestCommand: "npm", TestArgs: []string{"test", "--silent"},
		Parse: ParseMSBuild,
	},
}

// EcosystemNames lists the supported ecosystems.
func EcosystemNames() []string {
	names := make([]string, 0, len(ecosystems))
	for name := range ecosystems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the named ecosystem with any configured command override
// applied.
func Lookup(name string, overrides map[string]config.CommandConfig) (Ecosystem, error) {
	eco, ok := ecosystems[strings.ToLower(name)]
	if !ok {
		return Ecosystem{}, auraerrors.NewInvalidArgumentError("ecosystem",
			"must be one of "+strings.Join(EcosystemNames(), ", "))
	}
	if o, ok := overrides[eco.Name]; ok && o.Command != "" {
		eco.Command, eco.Args = o.Command, append([]string(nil), o.Args...)
	}
	return eco, nil
}

// BuildCommand returns the runner command for a build in dir.
func (e Ecosystem) BuildCommand(dir string) runner.Command {
	return runner.Command{Name: e.Command, Args: e.Args, Dir: dir}
}

// TestRunCommand returns the runner command for a test run in dir.
func (e Ecosystem) TestRunCommand(dir string) runner.Command {
	return runner.Command{Name: e.TestCommand, Args: e.TestArgs, Dir: dir}
}

// Project is a detected buildable project.
type Project struct {
	Ecosystem string `json:"ecosystem"`
	Root      string `json:"root"`
	Manifest  string `json:"manifest"`
	Name      string `json:"name,omitempty"`
}

// DetectProject inspects root for a known project manifest.
func DetectProject(root string) (*Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var sln, csproj string
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		names[name] = true
		switch strings.ToLower(filepath.Ext(name)) {
		case ".sln", ".slnx":
			if sln == "" {
				sln = name
			}
		case ".csproj":
			if csproj == "" {
				csproj = name
			}
		}
	}

	switch {
	case sln != "" || csproj != "":
		manifest := sln
		if manifest == "" {
			manifest = csproj
		}
		return &Project{
			Ecosystem: EcosystemDotnet,
			Root:      root,
			Manifest:  filepath.Join(root, manifest),
			Name:      strings.TrimSuffix(manifest, filepath.Ext(manifest)),
		}, nil
	case names["Cargo.toml"]:
		p := filepath.Join(root, "Cargo.toml")
		return &Project{Ecosystem: EcosystemCargo, Root: root, Manifest: p, Name: cargoName(p)}, nil
	case names["go.mod"]:
		p := filepath.Join(root, "go.mod")
		return &Project{Ecosystem: EcosystemGo, Root: root, Manifest: p, Name: goModulePath(p)}, nil
	case names["package.json"]:
		return &Project{Ecosystem: EcosystemNpm, Root: root, Manifest: filepath.Join(root, "package.json")}, nil
	}
	return nil, auraerrors.NewPreconditionError(
		"no buildable project found in "+root,
		"pass an explicit ecosystem or run from a directory with a solution, Cargo.toml, go.mod or package.json",
	)
}

type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

func cargoName(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return ""
	}
	if m.Package.Name == "" && len(m.Workspace.Members) > 0 {
		return "workspace"
	}
	return m.Package.Name
}

func goModulePath(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

package rename

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"aura/internal/backends"
	auraerrors "aura/internal/errors"
	"aura/internal/symbols"
)

const personCS = `class Person
{
    private string _name;
    public string Name { get { return _name; } }
    public Person(string name) { _name = name; }
}
`

// scanRefs finds whole-word occurrences of name in the files.
func scanRefs(t *testing.T, name string, paths ...string) []backends.Reference {
	t.Helper()
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	var out []backends.Reference
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			for _, m := range re.FindAllStringIndex(line, -1) {
				out = append(out, backends.Reference{Location: backends.Location{Path: p, Line: i + 1, Column: m[0] + 1}})
			}
		}
	}
	return out
}

func personGraph(t *testing.T) (*backends.StaticGraph, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Person.cs")
	if err := os.WriteFile(path, []byte(personCS), 0644); err != nil {
		t.Fatal(err)
	}
	g := backends.NewStaticGraph(backends.BackendSCIP,
		backends.Node{Name: "Person", Kind: "class", Location: backends.Location{Path: path, Line: 1}},
		backends.Node{Name: "_name", Kind: "field", Container: "Person", Location: backends.Location{Path: path, Line: 3}},
		backends.Node{Name: "Name", Kind: "property", Container: "Person", Location: backends.Location{Path: path, Line: 4}},
		backends.Node{Name: "name", Kind: "parameter", Container: "Person", Location: backends.Location{Path: path, Line: 5}},
	)
	for _, name := range []string{"Person", "_name", "Name", "name"} {
		g.References[name] = scanRefs(t, name, path)
	}
	return g, path
}

func TestAnalyze_Property(t *testing.T) {
	g, path := personGraph(t)
	a := NewAnalyzer(g, nil, nil)

	br, err := a.Analyze(context.Background(), Request{Symbol: "Name", NewName: "FullName"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if br.TargetKind != "property" || br.TotalReferences != 1 {
		t.Errorf("target = %s, references = %d", br.TargetKind, br.TotalReferences)
	}
	if br.FilesAffected != 1 || br.Files[0] != path {
		t.Errorf("files = %v", br.Files)
	}
	if len(br.RelatedSymbols) != 2 {
		t.Fatalf("related = %+v, want 2", br.RelatedSymbols)
	}
	field := br.RelatedSymbols[0]
	if field.Name != "_name" || field.SuggestedNewName != "_fullName" || field.ReferenceCount != 3 || field.Relation != RelationBackingField {
		t.Errorf("backing field = %+v", field)
	}

	wantPlan := []string{"Name->FullName", "_name->_fullName", "name->fullName"}
	if len(br.SuggestedPlan) != len(wantPlan) {
		t.Fatalf("plan = %+v", br.SuggestedPlan)
	}
	for i, step := range br.SuggestedPlan {
		if step.Order != i+1 || step.Type != StepRenameSymbol || step.Symbol+"->"+step.NewName != wantPlan[i] {
			t.Errorf("step %d = %+v, want %s", i, step, wantPlan[i])
		}
	}
	if br.Fingerprints[path] == "" {
		t.Error("expected a fingerprint for the affected file")
	}
}

func TestAnalyze_DoesNotMutateAndIsStable(t *testing.T) {
	g, path := personGraph(t)
	a := NewAnalyzer(g, nil, nil)

	first, err := a.Analyze(context.Background(), Request{Symbol: "Name", NewName: "FullName"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Analyze(context.Background(), Request{Symbol: "Name", NewName: "FullName"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Analyze() not stable:\n%+v\n%+v", first, second)
	}

	data, _ := os.ReadFile(path)
	if string(data) != personCS {
		t.Error("Analyze() modified the file")
	}
}

func TestAnalyze_Errors(t *testing.T) {
	g, _ := personGraph(t)
	a := NewAnalyzer(g, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  Request
		code auraerrors.ErrorCode
	}{
		{"missing symbol", Request{NewName: "X"}, auraerrors.InvalidArgument},
		{"missing new name", Request{Symbol: "Name"}, auraerrors.InvalidArgument},
		{"same name", Request{Symbol: "Name", NewName: "Name"}, auraerrors.InvalidArgument},
		{"unknown symbol", Request{Symbol: "Missing", NewName: "X"}, auraerrors.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Analyze(ctx, tt.req)
			if !auraerrors.Is(err, tt.code) {
				t.Errorf("Analyze() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExecute_Property(t *testing.T) {
	g, path := personGraph(t)
	a := NewAnalyzer(g, nil, nil)

	res, err := a.Execute(context.Background(), Request{Symbol: "Name", NewName: "FullName"}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %s", res.Error)
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != path {
		t.Errorf("ModifiedFiles = %v", res.ModifiedFiles)
	}
	if res.Replacements != 6 {
		t.Errorf("Replacements = %d, want 6", res.Replacements)
	}

	data, _ := os.ReadFile(path)
	got := string(data)
	for _, want := range []string{
		"private string _fullName;",
		"public string FullName { get { return _fullName; } }",
		"public Person(string fullName) { _fullName = fullName; }",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestExecute_TypeRenamesFile(t *testing.T) {
	g, path := personGraph(t)
	a := NewAnalyzer(g, nil, nil)

	br, err := a.Analyze(context.Background(), Request{Symbol: "Person", NewName: "Employee"})
	if err != nil {
		t.Fatal(err)
	}
	last := br.SuggestedPlan[len(br.SuggestedPlan)-1]
	newPath := filepath.Join(filepath.Dir(path), "Employee.cs")
	if last.Type != StepRenameFile || last.NewFile != newPath {
		t.Fatalf("last step = %+v, want file rename", last)
	}

	res, err := a.Execute(context.Background(), Request{Symbol: "Person", NewName: "Employee"}, br.Fingerprints)
	if err != nil || !res.Success {
		t.Fatalf("Execute() = %+v, %v", res, err)
	}
	if len(res.RenamedFiles) != 1 || res.RenamedFiles[0].To != newPath {
		t.Errorf("RenamedFiles = %+v", res.RenamedFiles)
	}
	data, err := os.ReadFile(newPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "class Employee") || !strings.Contains(string(data), "public Employee(string name)") {
		t.Errorf("unexpected content:\n%s", data)
	}
}

func TestExecute_FingerprintMismatch(t *testing.T) {
	g, path := personGraph(t)
	a := NewAnalyzer(g, nil, nil)

	res, err := a.Execute(context.Background(), Request{Symbol: "Name", NewName: "FullName"}, map[string]string{path: "stale"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success || res.FailedFile != path {
		t.Errorf("Execute() = %+v, want fingerprint failure", res)
	}
	if len(res.ModifiedFiles) != 0 {
		t.Errorf("ModifiedFiles = %v, want none", res.ModifiedFiles)
	}
	data, _ := os.ReadFile(path)
	if string(data) != personCS {
		t.Error("file should be unchanged")
	}
}

func TestExecute_PartialFailureReportsModifiedFiles(t *testing.T) {
	dir := t.TempDir()
	a1 := filepath.Join(dir, "a.cs")
	if err := os.WriteFile(a1, []byte("Widget w;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "b.cs")

	g := backends.NewStaticGraph(backends.BackendSCIP,
		backends.Node{Name: "Widget", Kind: "method", Location: backends.Location{Path: a1, Line: 1}})
	g.References["Widget"] = []backends.Reference{
		{Location: backends.Location{Path: a1, Line: 1, Column: 1}},
		{Location: backends.Location{Path: missing, Line: 1, Column: 1}},
	}

	res, err := NewAnalyzer(g, nil, nil).Execute(context.Background(), Request{Symbol: "Widget", NewName: "Gadget"}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.FailedFile != missing {
		t.Errorf("FailedFile = %q, want %q", res.FailedFile, missing)
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != a1 {
		t.Errorf("ModifiedFiles = %v, want [%s]", res.ModifiedFiles, a1)
	}
}

func TestExecute_StaleLocationSkipped(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.cs")
	if err := os.WriteFile(p, []byte("int Total;\n"), 0644); err != nil {
		t.Fatal(err)
	}
	g := backends.NewStaticGraph(backends.BackendSCIP,
		backends.Node{Name: "Total", Kind: "method", Location: backends.Location{Path: p, Line: 1}})
	g.References["Total"] = []backends.Reference{
		{Location: backends.Location{Path: p, Line: 1, Column: 5}},
		{Location: backends.Location{Path: p, Line: 1, Column: 1}},
	}

	res, err := NewAnalyzer(g, nil, nil).Execute(context.Background(), Request{Symbol: "Total", NewName: "Sum"}, nil)
	if err != nil || !res.Success {
		t.Fatalf("Execute() = %+v, %v", res, err)
	}
	if res.Replacements != 1 || res.Skipped != 1 {
		t.Errorf("Replacements = %d, Skipped = %d, want 1 and 1", res.Replacements, res.Skipped)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "int Sum;\n" {
		t.Errorf("content = %q", data)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint([]byte("a")) == Fingerprint([]byte("b")) {
		t.Error("different content should have different fingerprints")
	}
	if len(Fingerprint(nil)) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(Fingerprint(nil)))
	}
}

const petCS = `class Pet
{
    public string Name { get; set; }
}
`

const programCS = `class Program
{
    void Show(Pet pet) { Log(pet.Name); }
}
`

const loggerCS = `class Logger
{
    public void Log(string name) { WriteLine("Name: " + name); }
}
`

func TestExecute_SameMemberNameInOtherTypes(t *testing.T) {
	g, person := personGraph(t)
	dir := filepath.Dir(person)
	files := map[string]string{"Pet.cs": petCS, "Program.cs": programCS, "Logger.cs": loggerCS}
	paths := map[string]string{}
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		paths[name] = p
	}
	g.Nodes[0].Location.EndLine = 6
	g.Nodes = append(g.Nodes,
		backends.Node{Name: "Pet", Kind: "class", Location: backends.Location{Path: paths["Pet.cs"], Line: 1, EndLine: 4}},
		backends.Node{Name: "Name", Kind: "property", Container: "Pet", Location: backends.Location{Path: paths["Pet.cs"], Line: 3}},
		backends.Node{Name: "Program", Kind: "class", Location: backends.Location{Path: paths["Program.cs"], Line: 1, EndLine: 4}},
		backends.Node{Name: "Logger", Kind: "class", Location: backends.Location{Path: paths["Logger.cs"], Line: 1, EndLine: 4}},
	)
	all := []string{person, paths["Pet.cs"], paths["Program.cs"]}
	g.References["Name"] = scanRefs(t, "Name", all...)
	g.References["Person"] = scanRefs(t, "Person", all...)
	g.References["Pet"] = scanRefs(t, "Pet", all...)
	// A lookup by bare name also reaches the parameter of another type.
	g.References["name"] = scanRefs(t, "name", person, paths["Logger.cs"])

	req := Request{Symbol: "Name", NewName: "FullName", Path: person}
	br, err := NewAnalyzer(g, nil, nil).Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if br.TotalReferences != 1 || len(br.Files) != 1 || br.Files[0] != person {
		t.Errorf("references = %d, files = %v, want 1 in %s", br.TotalReferences, br.Files, person)
	}

	res, err := NewAnalyzer(g, nil, nil).Execute(context.Background(), req, br.Fingerprints)
	if err != nil || !res.Success {
		t.Fatalf("Execute() = %+v, %v", res, err)
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != person {
		t.Errorf("ModifiedFiles = %v, want [%s]", res.ModifiedFiles, person)
	}
	for name, content := range files {
		data, _ := os.ReadFile(paths[name])
		if string(data) != content {
			t.Errorf("%s changed:\n%s", name, data)
		}
	}
}

func TestAnalyze_KeepsReferencesOfTargetSymbolID(t *testing.T) {
	dir := t.TempDir()
	a1 := filepath.Join(dir, "a.cs")
	b1 := filepath.Join(dir, "b.cs")
	for _, p := range []string{a1, b1} {
		if err := os.WriteFile(p, []byte("int Count;\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	g := backends.NewStaticGraph(backends.BackendSCIP,
		backends.Node{ID: "A#Count.", Name: "Count", Kind: "field", Container: "A", Location: backends.Location{Path: a1, Line: 1}},
		backends.Node{ID: "B#Count.", Name: "Count", Kind: "field", Container: "B", Location: backends.Location{Path: b1, Line: 1}},
	)
	g.References["Count"] = []backends.Reference{
		{SymbolID: "A#Count.", Location: backends.Location{Path: a1, Line: 1, Column: 5}},
		{SymbolID: "B#Count.", Location: backends.Location{Path: b1, Line: 1, Column: 5}},
	}

	br, err := NewAnalyzer(g, nil, nil).Analyze(context.Background(), Request{Symbol: "Count", NewName: "Total", Path: b1})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if br.TotalReferences != 1 || len(br.Files) != 1 || br.Files[0] != b1 {
		t.Errorf("references = %d, files = %v, want 1 in %s", br.TotalReferences, br.Files, b1)
	}
}

func TestExecute_WorkspaceLeavesStringLiteralsAlone(t *testing.T) {
	if !symbols.IsAvailable() {
		t.Skip("tree-sitter not available")
	}
	dir := t.TempDir()
	person := filepath.Join(dir, "Person.cs")
	logger := filepath.Join(dir, "Logger.cs")
	if err := os.WriteFile(person, []byte(personCS), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(logger, []byte(loggerCS), 0644); err != nil {
		t.Fatal(err)
	}

	w := symbols.NewWorkspace(dir, symbols.Options{})
	res, err := NewAnalyzer(w, nil, nil).Execute(context.Background(), Request{Symbol: "Name", NewName: "FullName", Path: person}, nil)
	if err != nil || !res.Success {
		t.Fatalf("Execute() = %+v, %v", res, err)
	}
	if len(res.ModifiedFiles) != 1 || res.ModifiedFiles[0] != person {
		t.Errorf("ModifiedFiles = %v, want [%s]", res.ModifiedFiles, person)
	}
	data, _ := os.ReadFile(logger)
	if string(data) != loggerCS {
		t.Errorf("Logger.cs changed:\n%s", data)
	}
	data, _ = os.ReadFile(person)
	if !strings.Contains(string(data), "public string FullName {") {
		t.Errorf("Person.cs not renamed:\n%s", data)
	}
}

//go:build cgo

package symbols

import (
	"context"
	"path/filepath"
	"testing"

	"aura/internal/backends"
	"aura/internal/language"
)

const shapesCS = `namespace Shapes
{
    public interface IShape
    {
        double Area();
    }

    public class Circle : IShape
    {
        private double radius, scale;

        public Circle(double r) { radius = r; }

        public double Area()
        {
            return 3.14 * radius * radius;
        }
    }

    public class Ring : Circle
    {
        public Ring() : base(2) { }
    }
}
`

const reportCS = `namespace Shapes
{
    public class Report
    {
        public void Print(IShape s)
        {
            System.Console.WriteLine(s.Area());
        }
    }
}
`

func TestExtractSource_CSharp(t *testing.T) {
	syms, err := NewExtractor().ExtractSource(context.Background(), "/repo/Shapes.cs", []byte(shapesCS), language.CSharp)
	if err != nil {
		t.Fatalf("ExtractSource() error = %v", err)
	}

	byKey := make(map[string]Symbol)
	for _, s := range syms {
		byKey[s.Container+"."+s.Name+":"+s.Kind] = s
	}

	for _, key := range []string{
		".IShape:interface",
		"IShape.Area:method",
		".Circle:class",
		"Circle.radius:field",
		"Circle.scale:field",
		"Circle.Circle:constructor",
		"Circle.Area:method",
		".Ring:class",
	} {
		if _, ok := byKey[key]; !ok {
			t.Errorf("missing symbol %s in %+v", key, syms)
		}
	}

	circle := byKey[".Circle:class"]
	if len(circle.Bases) != 1 || circle.Bases[0] != "IShape" {
		t.Errorf("Circle bases = %v, want [IShape]", circle.Bases)
	}
	if circle.Line != 8 {
		t.Errorf("Circle line = %d, want 8", circle.Line)
	}
	area := byKey["Circle.Area:method"]
	if area.Signature != "public double Area()" {
		t.Errorf("Area signature = %q", area.Signature)
	}
}

func TestExtractSource_Python(t *testing.T) {
	src := "class Base:\n    pass\n\nclass Child(Base, metaclass=Meta):\n    def run(self):\n        pass\n\ndef helper():\n    pass\n"
	syms, err := NewExtractor().ExtractSource(context.Background(), "/repo/m.py", []byte(src), language.Python)
	if err != nil {
		t.Fatalf("ExtractSource() error = %v", err)
	}
	var child, run, helper *Symbol
	for i := range syms {
		switch syms[i].Name {
		case "Child":
			child = &syms[i]
		case "run":
			run = &syms[i]
		case "helper":
			helper = &syms[i]
		}
	}
	if child == nil || len(child.Bases) != 1 || child.Bases[0] != "Base" {
		t.Errorf("Child = %+v, want single base Base", child)
	}
	if run == nil || run.Kind != KindMethod || run.Container != "Child" {
		t.Errorf("run = %+v, want method of Child", run)
	}
	if helper == nil || helper.Kind != KindFunction || helper.Container != "" {
		t.Errorf("helper = %+v, want top-level function", helper)
	}
}

func TestExtractSource_UnsupportedLanguage(t *testing.T) {
	if _, err := NewExtractor().ExtractSource(context.Background(), "x.rb", nil, language.Tag("ruby")); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestWorkspace_StructuralQueries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/Shapes.cs", shapesCS)
	report := writeFile(t, root, "src/Report.cs", reportCS)

	w := NewWorkspace(root, Options{})
	ctx := context.Background()

	nodes, err := w.FindNodes(ctx, backends.NodeQuery{Name: "Circle", Exact: true, Kind: KindClass})
	if err != nil || len(nodes) != 1 {
		t.Fatalf("FindNodes(Circle) = %v, %v", nodes, err)
	}
	if nodes[0].ID != "src/Shapes.cs#Circle@8" {
		t.Errorf("ID = %q", nodes[0].ID)
	}

	impls, _ := w.FindImplementations(ctx, "IShape")
	if len(impls) != 1 || impls[0].Name != "Circle" {
		t.Errorf("FindImplementations(IShape) = %+v", impls)
	}
	derived, _ := w.FindDerivedTypes(ctx, "Circle")
	if len(derived) != 1 || derived[0].Name != "Ring" {
		t.Errorf("FindDerivedTypes(Circle) = %+v", derived)
	}

	members, _ := w.GetTypeMembers(ctx, "Circle")
	if len(members) != 4 {
		t.Errorf("GetTypeMembers(Circle) = %d members, want 4: %+v", len(members), members)
	}

	callers, _ := w.FindCallers(ctx, "Area")
	if len(callers) != 1 || callers[0].Name != "Print" || callers[0].Location.Path != report {
		t.Errorf("FindCallers(Area) = %+v", callers)
	}

	refs, _ := w.FindReferences(ctx, "Area")
	definitions := 0
	for _, r := range refs {
		if r.Kind == "definition" {
			definitions++
		}
	}
	if len(refs) != 3 || definitions != 2 {
		t.Errorf("FindReferences(Area) = %d refs (%d definitions), want 3 (2)", len(refs), definitions)
	}

	scoped, _ := w.FindNodes(ctx, backends.NodeQuery{Name: "Print", Path: filepath.Join("src", "Report.cs")})
	if len(scoped) != 1 {
		t.Errorf("path-scoped FindNodes = %+v", scoped)
	}
}

package buildfix

import (
	"reflect"
	"testing"
)

func TestParseMSBuild(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []BuildError
	}{
		{
			name:   "csc error",
			output: "foo.cs(10,5): error CS0103: The name 'x' does not exist",
			want: []BuildError{{
				FilePath: "foo.cs", Line: 10, Column: 5, Severity: "error", Code: "CS0103",
				Message: "The name 'x' does not exist",
			}},
		},
		{
			name:   "msbuild project suffix",
			output: "/src/App/Program.cs(3,9): warning CS0168: The variable 'e' is declared but never used [/src/App/App.csproj]",
			want: []BuildError{{
				FilePath: "/src/App/Program.cs", Line: 3, Column: 9, Severity: "warning", Code: "CS0168",
				Message: "The variable 'e' is declared but never used",
			}},
		},
		{
			name:   "tsc",
			output: "src/index.ts(12,3): error TS2322: Type 'string' is not assignable to type 'number'.",
			want: []BuildError{{
				FilePath: "src/index.ts", Line: 12, Column: 3, Severity: "error", Code: "TS2322",
				Message: "Type 'string' is not assignable to type 'number'.",
			}},
		},
		{
			name:   "duplicates collapse",
			output: "a.cs(1,1): error CS1002: ; expected\r\na.cs(1,1): error CS1002: ; expected\nBuild FAILED.",
			want: []BuildError{{
				FilePath: "a.cs", Line: 1, Column: 1, Severity: "error", Code: "CS1002", Message: "; expected",
			}},
		},
		{
			name:   "noise",
			output: "Determining projects to restore...\nBuild FAILED.\n",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMSBuild(tt.output)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMSBuild() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRust(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []BuildError
	}{
		{
			name:   "single line",
			output: "error[E0384]: cannot assign twice --> src/lib.rs:4:5",
			want: []BuildError{{
				FilePath: "src/lib.rs", Line: 4, Column: 5, Severity: "error", Code: "E0384",
				Message: "cannot assign twice",
			}},
		},
		{
			name: "rustc layout",
			output: "error[E0308]: mismatched types\n" +
				"  --> src/main.rs:7:18\n" +
				"   |\n" +
				"7  |     let x: u32 = \"a\";\n" +
				"warning: unused variable: `y`\n" +
				" --> src/main.rs:9:9\n" +
				"error: could not compile `demo` due to previous error\n",
			want: []BuildError{
				{FilePath: "src/main.rs", Line: 7, Column: 18, Severity: "error", Code: "E0308", Message: "mismatched types"},
				{FilePath: "src/main.rs", Line: 9, Column: 9, Severity: "warning", Message: "unused variable: `y`"},
			},
		},
		{
			name: "headerless diagnostic before a located one",
			output: "error: linker `cc` not found\n" +
				"error[E0425]: cannot find value `x` in this scope\n" +
				" --> src/main.rs:2:5\n",
			want: []BuildError{
				{FilePath: "src/main.rs", Line: 2, Column: 5, Severity: "error", Code: "E0425", Message: "cannot find value `x` in this scope"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRust(tt.output)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseRust() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseGo(t *testing.T) {
	output := "# example.com/m\n./main.go:3:2: undefined: x\n./main.go:3:2: undefined: x\n"
	got := ParseGo(output)
	want := []BuildError{{FilePath: "./main.go", Line: 3, Column: 2, Severity: "error", Message: "undefined: x"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseGo() = %+v, want %+v", got, want)
	}
}

func TestParseAll(t *testing.T) {
	output := "foo.cs(10,5): error CS0103: The name 'x' does not exist\n" +
		"error[E0384]: cannot assign twice --> src/lib.rs:4:5\n" +
		"main.go:1:1: expected 'package'\n"
	if got := ParseAll(output); len(got) != 3 {
		t.Errorf("ParseAll() = %d errors, want 3: %+v", len(got), got)
	}
}

func TestErrors(t *testing.T) {
	diags := []BuildError{{Severity: SeverityWarning}, {Severity: SeverityError}}
	if got := Errors(diags); len(got) != 1 || got[0].Severity != SeverityError {
		t.Errorf("Errors() = %+v", got)
	}
}

package operations

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"aura/internal/envelope"
	auraerrors "aura/internal/errors"
	"aura/internal/language"
)

type renameArgs struct {
	SymbolName   string `json:"symbolName" validate:"required"`
	NewName      string `json:"newName" validate:"required,nefield=SymbolName"`
	SolutionPath string `json:"solutionPath" validate:"required"`
}

type scriptArgs struct {
	ProjectPath string `json:"projectPath" validate:"required"`
	FilePath    string `json:"filePath" validate:"required"`
	Offset      *int   `json:"offset" validate:"required,min=0"`
	NewName     string `json:"newName" validate:"required"`
}

func tagged(name string) Handler {
	return func(_ context.Context, call Call) (*envelope.Response, error) {
		return envelope.New().Data(name + ":" + string(call.Language)).Build(), nil
	}
}

func newRefactorRouter() *Router {
	r := NewRouter("refactor", nil)
	r.Handle("rename", Typed(func(_ context.Context, call Call, a *renameArgs) (*envelope.Response, error) {
		return envelope.New().Data("native:" + a.NewName).Build(), nil
	}))
	r.HandleLanguage("rename", Typed(func(_ context.Context, call Call, a *scriptArgs) (*envelope.Response, error) {
		return envelope.New().Data("script:" + string(call.Language)).Build(), nil
	}), language.Python, language.TypeScript)
	r.HandleLanguage("extract_variable", tagged("script"), language.Python)
	r.Handle("safe_delete", tagged("native"))
	return r
}

func TestRouter_Precedence(t *testing.T) {
	r := newRefactorRouter()

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{
			name: "default language is native",
			args: map[string]interface{}{"operation": "rename", "symbolName": "Foo", "newName": "Bar", "solutionPath": "App.sln"},
			want: "native:Bar",
		},
		{
			name: "file extension selects script backend",
			args: map[string]interface{}{"operation": "rename", "projectPath": "/p", "filePath": "/p/a.py", "offset": 0, "newName": "b"},
			want: "script:python",
		},
		{
			name: "explicit language wins over extension",
			args: map[string]interface{}{"operation": "rename", "language": "ts", "projectPath": "/p", "filePath": "/p/a.py", "offset": 3, "newName": "b"},
			want: "script:typescript",
		},
		{
			name: "language without dedicated handler uses native",
			args: map[string]interface{}{"operation": "safe_delete", "filePath": "a.py"},
			want: "native:python",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.Dispatch(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if resp.Data != tt.want {
				t.Errorf("Data = %v, want %s", resp.Data, tt.want)
			}
		})
	}
}

func TestRouter_UnknownOperation(t *testing.T) {
	r := newRefactorRouter()

	_, err := r.Dispatch(context.Background(), map[string]interface{}{"operation": "inline_everything"})
	if !auraerrors.Is(err, auraerrors.InvalidOperation) {
		t.Fatalf("error = %v, want INVALID_OPERATION", err)
	}
	if !strings.Contains(err.Error(), "Unknown operation: inline_everything") {
		t.Errorf("error should name the operation: %v", err)
	}

	// extract_variable exists only for python.
	_, err = r.Dispatch(context.Background(), map[string]interface{}{"operation": "extract_variable", "filePath": "a.cs"})
	if !auraerrors.Is(err, auraerrors.InvalidOperation) {
		t.Errorf("error = %v, want INVALID_OPERATION", err)
	}
}

func TestRouter_MissingOperation(t *testing.T) {
	_, err := newRefactorRouter().Dispatch(context.Background(), map[string]interface{}{})
	var ae *auraerrors.AuraError
	if !asAura(err, &ae) || ae.Code != auraerrors.InvalidArgument {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
	if len(ae.Fields) != 1 || ae.Fields[0].Field != "operation" {
		t.Errorf("Fields = %+v", ae.Fields)
	}
}

func TestRouter_CompanionFieldsPerLanguage(t *testing.T) {
	r := newRefactorRouter()

	tests := []struct {
		name       string
		args       map[string]interface{}
		wantFields []string
	}{
		{
			name:       "native needs symbol and solution",
			args:       map[string]interface{}{"operation": "rename", "newName": "Bar"},
			wantFields: []string{"solutionPath", "symbolName"},
		},
		{
			name:       "script needs project, file and offset",
			args:       map[string]interface{}{"operation": "rename", "language": "python", "newName": "b"},
			wantFields: []string{"filePath", "offset", "projectPath"},
		},
		{
			name:       "negative offset",
			args:       map[string]interface{}{"operation": "rename", "projectPath": "/p", "filePath": "a.ts", "offset": -1, "newName": "b"},
			wantFields: []string{"offset"},
		},
		{
			name:       "same name",
			args:       map[string]interface{}{"operation": "rename", "symbolName": "Foo", "newName": "Foo", "solutionPath": "App.sln"},
			wantFields: []string{"newName"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Dispatch(context.Background(), tt.args)
			var ae *auraerrors.AuraError
			if !asAura(err, &ae) || ae.Code != auraerrors.InvalidArgument {
				t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
			}
			var got []string
			for _, f := range ae.Fields {
				got = append(got, f.Field)
			}
			if !reflect.DeepEqual(got, tt.wantFields) {
				t.Errorf("fields = %v, want %v", got, tt.wantFields)
			}
		})
	}
}

func TestRouter_InvalidLanguage(t *testing.T) {
	_, err := newRefactorRouter().Dispatch(context.Background(), map[string]interface{}{"operation": "rename", "language": "cobol"})
	if !auraerrors.Is(err, auraerrors.InvalidArgument) {
		t.Errorf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestRouter_OperationsAndCatalog(t *testing.T) {
	r := newRefactorRouter()
	want := []string{"extract_variable", "rename", "safe_delete"}
	if got := r.Operations(); !reflect.DeepEqual(got, want) {
		t.Errorf("Operations() = %v, want %v", got, want)
	}
	if got := r.Languages("rename"); !reflect.DeepEqual(got, []string{"python", "typescript"}) {
		t.Errorf("Languages(rename) = %v", got)
	}

	all := Catalog{r, NewRouter("pattern", nil).Handle("get", tagged("p")).Handle("list", tagged("p"))}.ListAll()
	if !reflect.DeepEqual(all["pattern"], []string{"get", "list"}) || len(all["refactor"]) != 3 {
		t.Errorf("ListAll() = %v", all)
	}
}

func TestDecode_TypeMismatch(t *testing.T) {
	_, err := Decode[scriptArgs](map[string]interface{}{"offset": "ten"})
	var ae *auraerrors.AuraError
	if !asAura(err, &ae) {
		t.Fatalf("error = %v, want AuraError", err)
	}
	if len(ae.Fields) != 1 || ae.Fields[0].Field != "offset" || ae.Fields[0].Reason != "expected integer" {
		t.Errorf("Fields = %+v", ae.Fields)
	}
}

func asAura(err error, target **auraerrors.AuraError) bool {
	ae, ok := err.(*auraerrors.AuraError)
	if ok {
		*target = ae
	}
	return ok
}

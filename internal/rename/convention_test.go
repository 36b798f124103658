package rename

import (
	"reflect"
	"testing"
)

func TestNamingConventions(t *testing.T) {
	tests := []struct {
		name    string
		oldName string
		newName string
		kind    string
		want    []Candidate
	}{
		{
			name:    "property",
			oldName: "Name", newName: "FullName", kind: "property",
			want: []Candidate{
				{Name: "_name", NewName: "_fullName", Relation: RelationBackingField},
				{Name: "name", NewName: "fullName", Relation: RelationParameter},
			},
		},
		{
			name:    "class",
			oldName: "Order", newName: "Invoice", kind: "class",
			want: []Candidate{
				{Name: "_order", NewName: "_invoice", Relation: RelationBackingField},
				{Name: "order", NewName: "invoice", Relation: RelationParameter},
				{Name: "IOrder", NewName: "IInvoice", Relation: RelationInterface},
				{Name: "OrderTests", NewName: "InvoiceTests", Relation: RelationTestClass},
			},
		},
		{
			name:    "interface",
			oldName: "IShape", newName: "IFigure", kind: "interface",
			want: []Candidate{
				{Name: "_iShape", NewName: "_iFigure", Relation: RelationBackingField},
				{Name: "iShape", NewName: "iFigure", Relation: RelationParameter},
				{Name: "Shape", NewName: "Figure", Relation: RelationImplementation},
			},
		},
		{
			name:    "backing field",
			oldName: "_count", newName: "_total", kind: "field",
			want: []Candidate{
				{Name: "Count", NewName: "Total", Relation: RelationProperty},
				{Name: "count", NewName: "total", Relation: RelationParameter},
			},
		},
		{
			name:    "camel case",
			oldName: "count", newName: "total", kind: "parameter",
			want: []Candidate{
				{Name: "Count", NewName: "Total", Relation: RelationProperty},
				{Name: "_count", NewName: "_total", Relation: RelationBackingField},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NamingConventions{}.Candidates(tt.oldName, tt.newName, tt.kind)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStrategyFunc(t *testing.T) {
	s := StrategyFunc(func(oldName, newName, kind string) []Candidate {
		return []Candidate{{Name: oldName + "Impl", NewName: newName + "Impl", Relation: "impl"}}
	})
	got := s.Candidates("Repo", "Store", "interface")
	if len(got) != 1 || got[0].NewName != "StoreImpl" {
		t.Errorf("Candidates() = %+v", got)
	}
}

package redis

import (
	"reflect"
	"testing"

	"github.com/mkraev/mathnotes/internal/db"
)

func TestBuildCreateArgs(t *testing.T) {
	def := &db.IndexDefinition{
		Name:     "mathnotes_math_notes",
		Prefixes: []string{"mathnotes:math_notes:page:"},
		Fields: []db.IndexField{
			{Name: "doc", Type: db.IndexFieldTag},
			{Name: "page", Type: db.IndexFieldNumeric},
			{Name: "text", Type: db.IndexFieldText},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorFlat,
				VectorDim:      1536,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("buildCreateArgs: %v", err)
	}

	want := []string{
		"mathnotes_math_notes", "ON", "HASH",
		"PREFIX", "1", "mathnotes:math_notes:page:",
		"SCHEMA",
		"doc", "TAG",
		"page", "NUMERIC",
		"text", "TEXT",
		"vector", "VECTOR", "FLAT", "6",
		"TYPE", "FLOAT32", "DIM", "1536", "DISTANCE_METRIC", "COSINE",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args mismatch:\n got: %v\nwant: %v", args, want)
	}
}

func TestBuildCreateArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  *db.IndexDefinition
	}{
		{"no name", &db.IndexDefinition{Fields: []db.IndexField{{Name: "f"}}}},
		{"no fields", &db.IndexDefinition{Name: "idx"}},
		{"duplicate field", &db.IndexDefinition{
			Name:   "idx",
			Fields: []db.IndexField{{Name: "f"}, {Name: "f"}},
		}},
		{"vector without dim", &db.IndexDefinition{
			Name:   "idx",
			Fields: []db.IndexField{{Name: "v", Type: db.IndexFieldVector}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildCreateArgs(tt.def); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildVectorFieldArgs_Defaults(t *testing.T) {
	args, err := buildVectorFieldArgs(&db.IndexField{Name: "v", Type: db.IndexFieldVector, VectorDim: 8})
	if err != nil {
		t.Fatalf("buildVectorFieldArgs: %v", err)
	}

	// FLAT and COSINE are the defaults when not specified.
	want := []string{"VECTOR", "FLAT", "6", "TYPE", "FLOAT32", "DIM", "8", "DISTANCE_METRIC", "COSINE"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestVectorToBytes(t *testing.T) {
	got := vectorToBytes([]float32{1.0})
	want := string([]byte{0x00, 0x00, 0x80, 0x3f})
	if got != want {
		t.Errorf("vectorToBytes(1.0) = %x, want %x", got, want)
	}
	if len(vectorToBytes([]float32{1, 2, 3})) != 12 {
		t.Error("expected 4 bytes per component")
	}
}

package graph

import (
	"errors"
	"testing"
)

func TestNewQualifiedName(t *testing.T) {
	tests := []struct {
		testName  string
		namespace string
		name      string
		wantErr   bool
		wantStr   string
	}{
		{"namespaced", "pkg/server", "Handle", false, "pkg/server.Handle"},
		{"top level", "", "main", false, "main"},
		{"missing simple name", "pkg", "", true, ""},
		{"empty", "", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.testName, func(t *testing.T) {
			q, err := NewQualifiedName(tt.namespace, tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", q.String(), tt.wantStr)
			}
			if q.IsZero() {
				t.Error("constructed name should not be zero")
			}
		})
	}
}

func TestNewCallableValidation(t *testing.T) {
	if _, err := NewCallable(QualifiedName{}, KindFunction, Span{}, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero qualified name: got %v, want ErrInvalidArgument", err)
	}

	name := QualifiedName{Namespace: "Ns", Name: "F"}
	c, err := NewCallable(name, KindFunction, Span{StartLine: 1, StartCol: 1, EndLine: 3, EndCol: 1}, "ns.go")
	if err != nil {
		t.Fatal(err)
	}
	if c.Key() != name {
		t.Errorf("Key() = %v, want %v", c.Key(), name)
	}
	if c.Kind() != KindFunction || c.File() != "ns.go" {
		t.Error("payload accessors do not round-trip")
	}
}

func TestNewReferenceValidation(t *testing.T) {
	src := QualifiedName{Namespace: "Ns", Name: "A"}
	dst := QualifiedName{Namespace: "Ns", Name: "B"}
	span := Span{StartLine: 4, StartCol: 2, EndLine: 4, EndCol: 9}

	tests := []struct {
		name    string
		source  QualifiedName
		target  QualifiedName
		span    Span
		wantErr bool
	}{
		{"valid", src, dst, span, false},
		{"missing source", QualifiedName{}, dst, span, true},
		{"missing target", src, QualifiedName{}, span, true},
		{"missing span", src, dst, Span{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReference(tt.source, tt.target, tt.span, "ns.go")
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Source() != tt.source || r.Target() != tt.target || r.Span() != tt.span {
				t.Error("identity accessors do not round-trip")
			}
		})
	}
}

func TestReferenceStructuralEquality(t *testing.T) {
	src := QualifiedName{Namespace: "Ns", Name: "A"}
	dst := QualifiedName{Namespace: "Ns", Name: "B"}
	span := Span{StartLine: 4, StartCol: 2, EndLine: 4, EndCol: 9}

	r1, err := NewReference(src, dst, span, "ns.go")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewReference(src, dst, span, "ns.go")
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Error("references built from equal fields must compare equal")
	}

	r3, err := NewReference(src, dst, Span{StartLine: 9, StartCol: 2, EndLine: 9, EndCol: 9}, "ns.go")
	if err != nil {
		t.Fatal(err)
	}
	if r1 == r3 {
		t.Error("references differing only in span must compare unequal")
	}
}

func TestSpanString(t *testing.T) {
	s := Span{StartLine: 3, StartCol: 1, EndLine: 3, EndCol: 14}
	if got := s.String(); got != "3:1-3:14" {
		t.Errorf("String() = %q", got)
	}
	if !(Span{}).IsZero() {
		t.Error("zero span should report IsZero")
	}
}

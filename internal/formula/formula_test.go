package formula

import (
	"reflect"
	"testing"
)

func TestNewAccessors(t *testing.T) {
	f := New("total", "return 1 + 1")
	if f.Name() != "total" {
		t.Fatalf("Name() = %q, want total", f.Name())
	}
	if f.Body() != "return 1 + 1" {
		t.Fatalf("Body() = %q", f.Body())
	}
	if len(f.DependsOn()) != 0 {
		t.Fatalf("DependsOn() = %v, want none", f.DependsOn())
	}
}

func TestDependsOnSingle(t *testing.T) {
	f := New("b", "return get_output_from('a') + 1")
	if !reflect.DeepEqual(f.DependsOn(), []string{"a"}) {
		t.Fatalf("DependsOn() = %v, want [a]", f.DependsOn())
	}
}

func TestDependsOnMultipleInOrder(t *testing.T) {
	f := New("e", "return get_output_from('c') + get_output_from('d')")
	want := []string{"c", "d"}
	if !reflect.DeepEqual(f.DependsOn(), want) {
		t.Fatalf("DependsOn() = %v, want %v", f.DependsOn(), want)
	}
}

func TestDependsOnDuplicatesPreserved(t *testing.T) {
	f := New("x", "return get_output_from('a') + get_output_from('a')")
	want := []string{"a", "a"}
	if !reflect.DeepEqual(f.DependsOn(), want) {
		t.Fatalf("DependsOn() = %v, want %v", f.DependsOn(), want)
	}
}

func TestDependsOnIgnoresDynamicArguments(t *testing.T) {
	f := New("x", "return get_output_from(name_of('a'))")
	if len(f.DependsOn()) != 0 {
		t.Fatalf("DependsOn() = %v, want none for a non-literal argument", f.DependsOn())
	}
}

func TestDependsOnNoFalsePositiveOnSimilarText(t *testing.T) {
	f := New("x", "return get_output('a') + 1")
	if len(f.DependsOn()) != 0 {
		t.Fatalf("DependsOn() = %v, want none for unrelated call", f.DependsOn())
	}
}

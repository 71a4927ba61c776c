package value

import "testing"

func TestEqualIsTypeStrict(t *testing.T) {
	if Number(1).Equal(String("1")) {
		t.Fatal("Number(1) should not equal String(\"1\")")
	}
	if Number(1).Equal(Bool(true)) {
		t.Fatal("Number(1) should not equal Bool(true)")
	}
	if !Number(1).Equal(Number(1)) {
		t.Fatal("Number(1) should equal Number(1)")
	}
}

func TestCompareCrossKindFails(t *testing.T) {
	if _, ok := Number(1).Compare(String("1")); ok {
		t.Fatal("cross-kind compare should fail")
	}
}

func TestCompareNumberNaNIncomparable(t *testing.T) {
	nan := Number(0.0)
	nan.num = nan.num / nan.num // force NaN without importing math
	if _, ok := nan.Compare(nan); ok {
		t.Fatal("NaN should be incomparable, even to itself")
	}
}

func TestCompareStringLexicographic(t *testing.T) {
	ord, ok := String("a").Compare(String("b"))
	if !ok || ord != Less {
		t.Fatalf("Compare(a,b) = (%v,%v), want (Less,true)", ord, ok)
	}
}

func TestTextRendersEveryKind(t *testing.T) {
	if String("x").Text() != "x" {
		t.Fatal("String Text mismatch")
	}
	if Number(3).Text() != "3" {
		t.Fatalf("Number Text = %q, want 3", Number(3).Text())
	}
	if Bool(true).Text() != "true" || Bool(false).Text() != "false" {
		t.Fatal("Bool Text mismatch")
	}
}

func TestAsAccessorsRejectWrongKind(t *testing.T) {
	if _, ok := String("x").AsNumber(); ok {
		t.Fatal("AsNumber should fail on a String value")
	}
	if _, ok := Number(1).AsString(); ok {
		t.Fatal("AsString should fail on a Number value")
	}
	if _, ok := Bool(true).AsNumber(); ok {
		t.Fatal("AsNumber should fail on a Bool value")
	}
}

package core

import (
	"math"
	"testing"
)

func TestAddSafe(t *testing.T) {
	if v, err := AddSafe(10, 5); err != nil || v != 15 {
		t.Fatalf("got %v %v", v, err)
	}
	if _, err := AddSafe(math.MaxInt64, 1); err == nil {
		t.Fatalf("expected overflow")
	}
}

func TestNormalizeName(t *testing.T) {
	name, err := NormalizeName("  Red ")
	if err != nil || name != "Red" {
		t.Fatalf("got %v %v", name, err)
	}
	if _, err := NormalizeName("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestNormalizeColor(t *testing.T) {
	color, err := NormalizeColor(" #F00 ")
	if err != nil || color != "#F00" {
		t.Fatalf("got %v %v", color, err)
	}
	if _, err := NormalizeColor(""); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("abc"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateID(" "); err == nil {
		t.Fatalf("expected invalid id err")
	}
}

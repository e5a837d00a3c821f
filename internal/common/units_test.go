package common

import (
	"testing"
)

func TestTgasToGas(t *testing.T) {
	inputs := []string{"1", "100", "200", "0"}
	expected := []string{"1000000000000", "100000000000000", "200000000000000", "0"}

	for i, input := range inputs {
		output, err := TgasToGas(input)
		if err != nil {
			t.Fatal(err)
		}
		if output != expected[i] {
			t.Errorf("TgasToGas(%q) = %q, want %q", input, output, expected[i])
		}
	}

	for _, input := range []string{"", "abc", "-5", "1.5"} {
		if _, err := TgasToGas(input); err == nil {
			t.Errorf("TgasToGas(%q) expected error", input)
		}
	}
}

func TestYoctoToNear(t *testing.T) {
	inputs := []string{"1000000000000000000000000", "1500000000000000000000000", "0", "1"}
	expected := []string{"1.000000", "1.500000", "0.000000", "0.000000"}

	for i, input := range inputs {
		output, err := YoctoToNear(input)
		if err != nil {
			t.Fatal(err)
		}
		if output != expected[i] {
			t.Errorf("YoctoToNear(%q) = %q, want %q", input, output, expected[i])
		}
	}
}

func TestNearYoctoRoundTrip(t *testing.T) {
	inputs := []string{"0", "1", "1.5", "0.000001", "123456.654321"}

	for _, input := range inputs {
		yocto, err := NearToYocto(input)
		if err != nil {
			t.Fatal(err)
		}

		near, err := YoctoToNear(yocto)
		if err != nil {
			t.Fatal(err)
		}

		back, err := NearToYocto(near)
		if err != nil {
			t.Fatal(err)
		}

		if back != yocto {
			t.Errorf("round trip %q: got %q, want %q", input, back, yocto)
		}
	}
}

func TestMinYocto(t *testing.T) {
	out, err := MinYocto("500", "300")
	if err != nil {
		t.Fatal(err)
	}
	if out != "300" {
		t.Errorf("MinYocto(500, 300) = %q, want 300", out)
	}

	// string length must not decide the comparison
	out, err = MinYocto("999", "1000000000000000000000000")
	if err != nil {
		t.Fatal(err)
	}
	if out != "999" {
		t.Errorf("MinYocto = %q, want 999", out)
	}
}

func TestIsZeroYocto(t *testing.T) {
	if !IsZeroYocto("") || !IsZeroYocto("0") || !IsZeroYocto("garbage") {
		t.Error("expected zero for empty, 0 and unparseable input")
	}

	if IsZeroYocto("1") {
		t.Error("expected nonzero for 1")
	}
}

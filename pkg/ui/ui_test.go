package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	cases := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"", false, false},
		{"maybe\n", true, false},
	}
	for _, c := range cases {
		var out bytes.Buffer
		got, err := Confirm(strings.NewReader(c.input), &out, "remove calc?", c.def)
		if err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
		if got != c.want {
			t.Errorf("input %q default %v: expected %v, got %v", c.input, c.def, c.want, got)
		}
		if !strings.Contains(out.String(), "remove calc?") {
			t.Errorf("prompt not written: %q", out.String())
		}
	}
}

func TestTable(t *testing.T) {
	out := Table("Photons", []string{"Name", "ID"}, [][]string{{"calc", "id-2\nid-1"}})
	for _, want := range []string{"Photons", "Name", "calc", "id-2", "id-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

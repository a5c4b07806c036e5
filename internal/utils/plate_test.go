package utils

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"KA-01 AB 1234", "KA01AB1234"},
		{"  mh 12 de 1433 ", "MH12DE1433"},
		{"DL·8C·AF·5031", "DL8CAF5031"},
		{"", ""},
		{"---", ""},
	}
	for _, c := range cases {
		if got := NormalizePlate(c.in); got != c.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

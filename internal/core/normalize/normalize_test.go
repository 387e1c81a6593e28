package normalize

import (
	"testing"
)

func TestText_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		out  string
	}{
		{
			name: "identity",
			in:   "eu sei que vou te amar",
			out:  "eu sei que vou te amar",
		},
		{
			name: "utf8 repair drops invalid bytes",
			in:   string([]byte{0xff, 'm', 'a', 'r', 0x80, ' ', 'a', 'z', 'u', 'l'}),
			out:  "mar azul",
		},
		{
			name: "nfc composes combining accents",
			in:   "corac\u0327a\u0303o", // combining cedilla and tilde
			out:  "coração",
		},
		{
			name: "case is preserved",
			in:   "Saudade",
			out:  "Saudade",
		},
		{
			name: "remove zero-widths",
			in:   "sau\u200Bda\u200Dde",
			out:  "saudade",
		},
		{
			name: "width fold fullwidth",
			in:   "ＭＡＲ azul",
			out:  "MAR azul",
		},
		{
			name: "typographic apostrophe",
			in:   "d\u2019água",
			out:  "d'água",
		},
		{
			name: "collapse spaces keeps line breaks",
			in:   "  a\t\tb \n\n c  ",
			out:  "a b\nc",
		},
		{
			name: "controls dropped",
			in:   "a\x00b\x7Fc",
			out:  "abc",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Text(tc.in)
			if got != tc.out {
				t.Fatalf("Text(%q) = %q, want %q", tc.in, got, tc.out)
			}
			if again := Text(got); again != got {
				t.Fatalf("Text not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestWord(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Você ":    "você",
		"CORAÇÃO":    "coração",
		"":           "",
		"Beija-Flor": "beija-flor",
	}
	for in, want := range cases {
		if got := Word(in); got != want {
			t.Fatalf("Word(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollapseSpaces(t *testing.T) {
	t.Parallel()

	in := " \t a \n b   c \r\n "
	want := "a\nb c"
	if got := collapseSpaces(in); got != want {
		t.Fatalf("collapseSpaces(%q) = %q, want %q", in, got, want)
	}
}

func TestSanitize_FastPath(t *testing.T) {
	t.Parallel()

	s := "linha um\nlinha dois\t"
	if got := Sanitize(s); got != s {
		t.Fatalf("Sanitize changed clean input: %q", got)
	}
	if got := Sanitize("a\u0085b"); got != "ab" {
		t.Fatalf("Sanitize C1 = %q", got)
	}
}

func TestSanitize_DropsControlsAndBadBytes(t *testing.T) {
	t.Parallel()

	in := "ol\x00á\x7f\xffmundo\x1b"
	if got := Sanitize(in); got != "olámundo" {
		t.Fatalf("Sanitize(%q) = %q", in, got)
	}
}

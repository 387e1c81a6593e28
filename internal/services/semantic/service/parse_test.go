package service

import (
	"testing"

	"cancioneiro/internal/services/semantic/domain"
)

func TestExtractObject(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{`Claro! Aqui está: {"a":{"b":2}} espero ajudar`, `{"a":{"b":2}}`},
		{`sem json`, ``},
		{`} invertido {`, ``},
	}
	for _, tc := range cases {
		if got := extractObject(tc.in); got != tc.want {
			t.Fatalf("extractObject(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseResponse_CaseInsensitiveWordMatch(t *testing.T) {
	t.Parallel()

	in := []domain.Item{{Word: "coração"}, {Word: "Sertão"}}
	out, err := parseResponse(`{"classifications":[
		{"word":"Coração","code":"CO","confidence":1},
		{"word":"sertão","code":"ES","confidence":0.5}]}`, in)
	if err != nil {
		t.Fatalf("parseResponse: %v", err)
	}
	if out[0].Code != "CO" || out[1].Confidence != 0.5 {
		t.Fatalf("got %+v", out)
	}
}

func TestParseResponse_MissingField(t *testing.T) {
	t.Parallel()

	_, err := parseResponse(`{"classifications":[{"word":"x","confidence":1}]}`, []domain.Item{{Word: "x"}})
	if err == nil {
		t.Fatal("missing code should fail validation")
	}
}

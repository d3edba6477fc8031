package intent

import "testing"

func TestClassify_MenuDigitsOnlyWhenStandalone(t *testing.T) {
	cases := map[string]Intent{
		"1":    QA,
		" 2 ":  Quote,
		"3\n":  Handoff,
		"\t1 ": QA,
	}
	for in, want := range cases {
		if got := Classify(in); got != want {
			t.Fatalf("Classify(%q) = %s; want %s", in, got, want)
		}
	}

	// Digits embedded in prose must not trigger shortcuts.
	if got := Classify("tenho 3 dependentes"); got != QA {
		t.Fatalf("embedded digit classified as %s; want qa", got)
	}
	if got := Classify("12"); got != Unknown {
		t.Fatalf("Classify(\"12\") = %s; want unknown", got)
	}
	if got := Classify("2 vidas"); got == Quote {
		t.Fatalf("\"2 vidas\" must not be a quote shortcut")
	}
}

func TestClassify_Precedence(t *testing.T) {
	cases := []struct {
		in   string
		want Intent
	}{
		// handoff beats quote when both appear
		{"quero falar com um consultor sobre cotação", Handoff},
		{"/humano", Handoff},
		{"Me transfere por favor", Handoff},
		{"ATENDENTE", Handoff},
		// quote
		{"quero cotar um plano", Quote},
		{"Preciso de uma COTAÇÃO de saúde", Quote},
		{"cotacao", Quote},
		// greeting is prefix-only
		{"Oi, tudo bem?", Greeting},
		{"bom dia", Greeting},
		{"Olá", Greeting},
		{"tudo bom por ai", Greeting},
		// "oi" inside a word at the start still matches the prefix rule
		{"oitenta vidas", Greeting},
		// greeting word not at start -> qa
		{"qual a carência do plano? oi", QA},
		// long text -> qa
		{"qual a cobertura do seguro auto?", QA},
		{"abcd", QA},
		// short text -> unknown
		{"abc", Unknown},
		{"ok", Unknown},
		{"", Unknown},
		{"   ", Unknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Fatalf("Classify(%q) = %s; want %s", tc.in, got, tc.want)
		}
	}
}

func TestClassify_ShortThresholdCountsRunes(t *testing.T) {
	// four runes, more than four bytes
	if got := Classify("ção?"); got != QA {
		t.Fatalf("Classify(\"ção?\") = %s; want qa", got)
	}
	if got := Classify("çãõ"); got != Unknown {
		t.Fatalf("Classify(\"çãõ\") = %s; want unknown", got)
	}
}

func TestIsMenuShortcut(t *testing.T) {
	for _, in := range []string{"1", " 2", "3 "} {
		if !IsMenuShortcut(in) {
			t.Fatalf("IsMenuShortcut(%q) = false", in)
		}
	}
	for _, in := range []string{"4", "10", "3 vidas", ""} {
		if IsMenuShortcut(in) {
			t.Fatalf("IsMenuShortcut(%q) = true", in)
		}
	}
}

func TestIntentString(t *testing.T) {
	if Handoff.String() != "handoff" {
		t.Fatalf("String() = %q", Handoff.String())
	}
}

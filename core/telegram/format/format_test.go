package format

import "testing"

func TestMarkdownV2(t *testing.T) {
	cases := map[string]string{
		"3 карты (25 монет).": `3 карты \(25 монет\)\.`,
		"a_b*c":               `a\_b\*c`,
		`x\y`:                 `x\\y`,
		"01.10.2026 09:30":    `01\.10\.2026 09:30`,
		"Кельтский крест":     "Кельтский крест",
	}
	for in, want := range cases {
		if got := MarkdownV2(in); got != want {
			t.Errorf("MarkdownV2(%q) = %q, want %q", in, got, want)
		}
	}
	if got := MarkdownV2Code("code`x."); got != "code\\`x." {
		t.Errorf("MarkdownV2Code = %q", got)
	}
}

func TestDeref(t *testing.T) {
	s := "Анна"
	if Deref(&s, "-") != "Анна" || Deref(nil, "-") != "-" {
		t.Fatal("unexpected deref")
	}
	n := 7
	if Deref(&n, 0) != 7 || Deref[int](nil, 3) != 3 {
		t.Fatal("unexpected int deref")
	}
}

package priority

import "testing"

func TestGlyph(t *testing.T) {
	cases := map[Priority]string{
		Critical: "🔴",
		Signal:   "🟡",
		Routine:  "🟢",
	}
	for p, want := range cases {
		if got := p.Glyph(); got != want {
			t.Errorf("%v.Glyph() = %q, want %q", p, got, want)
		}
	}
}

func TestFromGlyph(t *testing.T) {
	for _, g := range Glyphs() {
		p, ok := FromGlyph(g)
		if !ok {
			t.Errorf("FromGlyph(%q) reported not ok", g)
		}
		if p.Glyph() != g {
			t.Errorf("FromGlyph(%q).Glyph() = %q, want round trip", g, p.Glyph())
		}
	}

	if _, ok := FromGlyph("?"); ok {
		t.Error("FromGlyph on an unrecognized glyph should report not ok")
	}
}

func TestGlyphsOrderedBySeverity(t *testing.T) {
	want := []string{"🔴", "🟡", "🟢"}
	got := Glyphs()
	if len(got) != len(want) {
		t.Fatalf("len(Glyphs()) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Glyphs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestString(t *testing.T) {
	cases := map[Priority]string{
		Critical: "critical",
		Signal:   "signal",
		Routine:  "routine",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
}

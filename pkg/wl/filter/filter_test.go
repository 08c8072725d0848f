package filter

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		expr  string
		match []string
		miss  []string
	}{
		{"", []string{"anything"}, nil},
		{"AI,Data Center", []string{"AI", "ai", "Data Center"}, []string{"AI Chips", "Data"}},
		{"AI,Nuc*", []string{"AI", "Nuclear", "nuclear power"}, []string{"New Nuclear"}},
		{"Nuc*", []string{"Nuclear", "NUCLEAR"}, []string{"New Nuclear"}},
		{"/^(AI|GPU)$/", []string{"AI", "GPU"}, []string{"AI Chips", "ai"}},
		{"=ai", []string{"AI"}, []string{"AI Chips"}},
		{"power", []string{"Power", "Nuclear Power"}, []string{"Uranium"}},
		{"!power", []string{"Uranium"}, []string{"Nuclear Power"}},
		{"!AI,Semis", []string{"Power"}, []string{"ai", "Semis"}},
	}
	for _, tt := range tests {
		f, err := Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.expr, err)
		}
		for _, m := range tt.match {
			if !f.Match(m) {
				t.Errorf("Parse(%q) should match %q", tt.expr, m)
			}
		}
		for _, m := range tt.miss {
			if f.Match(m) {
				t.Errorf("Parse(%q) should not match %q", tt.expr, m)
			}
		}
	}
	for _, bad := range []string{"/(/", "AI,/(/", "Nuc[*"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q): expected error", bad)
		}
	}
}

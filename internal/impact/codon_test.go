package impact

import "testing"

func TestTranslateCodon(t *testing.T) {
	tests := []struct {
		name  string
		codon string
		want  byte
	}{
		{"ATG -> Met (start)", "ATG", 'M'},
		{"GGT -> Gly", "GGT", 'G'},
		{"TGT -> Cys", "TGT", 'C'},
		{"CGT -> Arg", "CGT", 'R'},

		{"TAA -> Stop", "TAA", '*'},
		{"TAG -> Stop", "TAG", '*'},
		{"TGA -> Stop", "TGA", '*'},

		{"too short", "AT", 'X'},
		{"ambiguous base", "ANG", 'X'},
		{"empty", "", 'X'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TranslateCodon(tt.codon); got != tt.want {
				t.Errorf("TranslateCodon(%q) = %c, want %c", tt.codon, got, tt.want)
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		seq  string
		want string
	}{
		{"ATGGGTTAA", "MG*"},
		{"ATGGG", "M"}, // trailing partial codon dropped
		{"", ""},
	}
	for _, tt := range tests {
		if got := Translate(tt.seq); got != tt.want {
			t.Errorf("Translate(%q) = %q, want %q", tt.seq, got, tt.want)
		}
	}
}

func TestReverseComplement(t *testing.T) {
	tests := []struct {
		name string
		seq  string
		want string
	}{
		{"simple", "ATGC", "GCAT"},
		{"single base", "A", "T"},
		{"palindrome", "ATAT", "ATAT"},
		{"lowercase", "atgc", "gcat"},
		{"unknown base", "ANT", "ANT"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReverseComplement(tt.seq); got != tt.want {
				t.Errorf("ReverseComplement(%q) = %q, want %q", tt.seq, got, tt.want)
			}
		})
	}
}

func TestAminoAcidThreeLetter(t *testing.T) {
	if got := aaThreeSeq("MG*"); got != "MetGlyTer" {
		t.Errorf("aaThreeSeq = %q", got)
	}
	if got := aaThree('B'); got != "Xaa" {
		t.Errorf("aaThree('B') = %q", got)
	}
}

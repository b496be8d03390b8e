package booking

import "testing"

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aDur, bStart, bDur int
		want                       bool
	}{
		{"identical", 600, 30, 600, 30, true},
		{"contained", 600, 60, 615, 15, true},
		{"partial head", 600, 30, 585, 30, true},
		{"partial tail", 600, 30, 615, 30, true},
		{"back to back before", 600, 30, 570, 30, false},
		{"back to back after", 600, 30, 630, 30, false},
		{"disjoint", 600, 30, 720, 30, false},
		{"one minute overlap", 600, 31, 630, 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.aStart, tt.aDur, tt.bStart, tt.bDur); got != tt.want {
				t.Fatalf("Overlaps(%d,%d,%d,%d) = %v, want %v",
					tt.aStart, tt.aDur, tt.bStart, tt.bDur, got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.bStart, tt.bDur, tt.aStart, tt.aDur); got != tt.want {
				t.Fatalf("Overlaps is not symmetric for %s", tt.name)
			}
		})
	}
}

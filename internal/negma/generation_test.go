package negma_test

import (
	"errors"
	"testing"
	"time"

	"negma/internal/negma"
)

func ids(gens []negma.Generation) []int {
	out := make([]int, len(gens))
	for i, g := range gens {
		out[i] = g.ID
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseGenerations_System(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantIDs      []int
		wantCurrent  int // -1 for none
		wantWarnings int
	}{
		{
			name:        "unordered listing with current",
			raw:         "42   2024-01-01   current\n41   2023-12-01\n40   2023-11-01\n",
			wantIDs:     []int{40, 41, 42},
			wantCurrent: 42,
		},
		{
			name:        "nix-env format with time and parenthesized marker",
			raw:         "  1   2024-01-01 10:00:00   \n  2   2024-02-01 11:30:00   (current)\n",
			wantIDs:     []int{1, 2},
			wantCurrent: 2,
		},
		{
			name:         "malformed lines are skipped",
			raw:          "12 2024-01-01\ngarbage\nxx 2024-01-02\n13 not-a-date\n14 2024-01-03 current\n",
			wantIDs:      []int{12, 14},
			wantCurrent:  14,
			wantWarnings: 3,
		},
		{
			name:        "ids with gaps",
			raw:         "3 2024-01-01\n7 2024-01-02\n15 2024-01-03 current\n",
			wantIDs:     []int{3, 7, 15},
			wantCurrent: 15,
		},
		{
			name:         "duplicate id keeps first",
			raw:          "5 2024-01-01 current\n5 2024-01-09\n",
			wantIDs:      []int{5},
			wantCurrent:  5,
			wantWarnings: 1,
		},
		{
			name:         "extra current markers keep highest id",
			raw:          "1 2024-01-01 current\n2 2024-01-02 current\n",
			wantIDs:      []int{1, 2},
			wantCurrent:  2,
			wantWarnings: 1,
		},
		{
			name:        "no current marker",
			raw:         "1 2024-01-01\n2 2024-01-02\n",
			wantIDs:     []int{1, 2},
			wantCurrent: -1,
		},
		{
			name:        "crlf line endings",
			raw:         "1 2024-01-01\r\n2 2024-01-02 current\r\n",
			wantIDs:     []int{1, 2},
			wantCurrent: 2,
		},
		{
			name:        "blank listing",
			raw:         "\n   \n",
			wantIDs:     []int{},
			wantCurrent: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := negma.ParseGenerations(tt.raw, negma.SystemProfileKind)
			if err != nil {
				t.Fatalf("ParseGenerations() error = %v", err)
			}
			if got := ids(listing.Generations); !equalInts(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
			cur, ok := listing.Current()
			switch {
			case tt.wantCurrent < 0 && ok:
				t.Errorf("Current() = %d, want none", cur.ID)
			case tt.wantCurrent >= 0 && (!ok || cur.ID != tt.wantCurrent):
				t.Errorf("Current() = %d/%v, want %d", cur.ID, ok, tt.wantCurrent)
			}
			if len(listing.Warnings) != tt.wantWarnings {
				t.Errorf("len(Warnings) = %d, want %d: %v", len(listing.Warnings), tt.wantWarnings, listing.Warnings)
			}
		})
	}
}

func TestParseGenerations_extraCurrentWarningLine(t *testing.T) {
	listing, err := negma.ParseGenerations("1 2024-01-01\n2 2024-01-02 current\n3 2024-01-03 current\n", negma.SystemProfileKind)
	if err != nil {
		t.Fatalf("ParseGenerations() error = %v", err)
	}
	if len(listing.Warnings) != 1 {
		t.Fatalf("len(Warnings) = %d, want 1: %v", len(listing.Warnings), listing.Warnings)
	}
	w := listing.Warnings[0]
	if w.Line != 2 {
		t.Errorf("Warnings[0].Line = %d, want 2", w.Line)
	}
	if got, want := w.String()[:len("line 2:")], "line 2:"; got != want {
		t.Errorf("String() = %q, want prefix %q", w.String(), want)
	}
}

func TestParseGenerations_SystemTimestamp(t *testing.T) {
	listing, err := negma.ParseGenerations("9   2024-05-06 07:08:09\n", negma.SystemProfileKind)
	if err != nil {
		t.Fatalf("ParseGenerations() error = %v", err)
	}
	want := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)
	if got := listing.Generations[0].CreatedAt; !got.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", got, want)
	}
}

func TestParseGenerations_Home(t *testing.T) {
	raw := "2024-02-01 09:15 : id 8 -> /nix/store/bbb-home-manager-generation (current)\n" +
		"2024-01-20 18:40 : id 7 -> /nix/store/aaa-home-manager-generation\n" +
		"this line is not a generation\n"

	listing, err := negma.ParseGenerations(raw, negma.HomeProfileKind)
	if err != nil {
		t.Fatalf("ParseGenerations() error = %v", err)
	}
	if got := ids(listing.Generations); !equalInts(got, []int{7, 8}) {
		t.Fatalf("ids = %v, want [7 8]", got)
	}
	if len(listing.Warnings) != 1 || listing.Warnings[0].Line != 3 {
		t.Errorf("Warnings = %v, want one on line 3", listing.Warnings)
	}

	g7, g8 := listing.Generations[0], listing.Generations[1]
	if g7.Current || !g8.Current {
		t.Errorf("Current = %v/%v, want false/true", g7.Current, g8.Current)
	}
	if g7.StorePath != "/nix/store/aaa-home-manager-generation" {
		t.Errorf("StorePath = %q", g7.StorePath)
	}
	want := time.Date(2024, 1, 20, 18, 40, 0, 0, time.Local)
	if !g7.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", g7.CreatedAt, want)
	}
}

func TestParseGenerations_Unrecognized(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind negma.ProfileKind
	}{
		{"system listing of garbage", "error: profile does not exist\n", negma.SystemProfileKind},
		{"home parser on system output", "1 2024-01-01 current\n", negma.HomeProfileKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, err := negma.ParseGenerations(tt.raw, tt.kind)
			if !errors.Is(err, negma.ErrEmptyListing) {
				t.Fatalf("error = %v, want ErrEmptyListing", err)
			}
			if listing == nil || len(listing.Warnings) == 0 {
				t.Error("expected warnings describing the skipped lines")
			}
		})
	}
}

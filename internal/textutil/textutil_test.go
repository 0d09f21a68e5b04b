package textutil

import (
	"math"
	"testing"
)

func TestNormalizeFoldsDiacriticsAndPunctuation(t *testing.T) {
	cases := map[string]string{
		"Pokémon: The Série!":  "pokemon the serie",
		"  Alpha   Beta  ":     "alpha beta",
		"Kino's Journey":       "kinos journey",
		"Re:ZERO -Starting-":   "re zero starting",
		"Ōkami to Kōshinryō":   "okami to koshinryo",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRatio(t *testing.T) {
	if got := Ratio("alpha beta", "alpha beta"); got != 1 {
		t.Fatalf("identical ratio = %v", got)
	}
	if got := Ratio("", ""); got != 1 {
		t.Fatalf("empty ratio = %v", got)
	}
	if got := Ratio("abc", "xyz"); got != 0 {
		t.Fatalf("disjoint ratio = %v", got)
	}
	// Same value difflib.SequenceMatcher reports for this pair.
	if got := Ratio("abcd", "bcde"); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("ratio = %v, want 0.75", got)
	}
	if got := Ratio("alpha beta", "alpha betta"); got <= 0.7 {
		t.Fatalf("close titles should pass the match threshold, got %v", got)
	}
}

func TestParseFilename(t *testing.T) {
	cases := []struct {
		in    string
		title string
		start int
		end   int
	}{
		{"[grp] Alpha Beta - 03 [x].mkv", "Alpha Beta", 3, 0},
		{"Alpha Beta - 05.mkv", "Alpha Beta", 5, 0},
		{"/media/anime/Alpha Beta - 12v2 (1080p).mkv", "Alpha Beta", 12, 0},
		{"Show.Name.S01E04.1080p.WEB.x264.mkv", "Show Name", 4, 0},
		{"Alpha_Beta_Ep07v2.mp4", "Alpha Beta", 7, 0},
		{"[grp] Gamma - 03-05 [1080p].mkv", "Gamma", 3, 5},
		{"Delta 12.avi", "Delta", 12, 0},
		{"Movie Title (2019) [1080p].mkv", "Movie Title", 0, 0},
	}
	for _, tc := range cases {
		got, ok := ParseFilename(tc.in)
		if !ok {
			t.Errorf("ParseFilename(%q) failed", tc.in)
			continue
		}
		if got.Title != tc.title || got.EpisodeStart != tc.start || got.EpisodeEnd != tc.end {
			t.Errorf("ParseFilename(%q) = %+v, want %q %d-%d", tc.in, got, tc.title, tc.start, tc.end)
		}
	}
	if _, ok := ParseFilename("[grp] [1080p].mkv"); ok {
		t.Fatal("expected failure when no title remains")
	}
}

func TestFileToken(t *testing.T) {
	cases := map[string]string{
		"anime":         "anime",
		"Anime List":    "anime_list",
		"light / novel": "light_novel",
		"Émission":      "émission",
		"  ":            "unknown",
		"--":            "unknown",
	}
	for in, want := range cases {
		if got := FileToken(in); got != want {
			t.Errorf("FileToken(%q) = %q, want %q", in, got, want)
		}
	}
}

package classify

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		wantTract   string
		wantSeries  string
	}{
		{
			name:       "daf yomi with tractate",
			title:      "Berachos Daf 2 - Daf Yomi",
			wantTract:  "Berachos",
			wantSeries: "Daf_Yomi",
		},
		{
			name:       "transliteration variant",
			title:      "Berakhot 15a shiur",
			wantTract:  "Berachos",
			wantSeries: "Shiurim",
		},
		{
			name:       "case insensitive",
			title:      "SANHEDRIN DAF YOMI daf 42",
			wantTract:  "Sanhedrin",
			wantSeries: "Daf_Yomi",
		},
		{
			name:        "match from description",
			title:       "Daf 17 morning class",
			description: "Continuing tractate Kiddushin with the daf yomi cycle",
			wantTract:   "Kiddushin",
			wantSeries:  "Daf_Yomi",
		},
		{
			name:       "two word tractate",
			title:      "Bava Metzia 21b lecture",
			wantTract:  "Bava_Metzia",
			wantSeries: "Lectures",
		},
		{
			name:       "underscore form",
			title:      "rosh_hashanah daf 9",
			wantTract:  "Rosh_Hashanah",
			wantSeries: "General",
		},
		{
			name:       "first match wins in cycle order",
			title:      "From Shabbos to Eruvin: siyum shiur",
			wantTract:  "Shabbos",
			wantSeries: "Shiurim",
		},
		{
			name:       "special event overrides tractate",
			title:      "Special Event: Siyum HaShas on Niddah",
			wantTract:  "Special_Series",
			wantSeries: "Events",
		},
		{
			name:       "announcement",
			title:      "Schedule announcement for next zman",
			wantTract:  "Special_Series",
			wantSeries: "Events",
		},
		{
			name:       "no match",
			title:      "Morning thoughts",
			wantTract:  Unclassified,
			wantSeries: SeriesGeneral,
		},
		{
			name:       "empty input",
			title:      "",
			wantTract:  Unclassified,
			wantSeries: SeriesGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.title, tt.description)
			if got.Tractate != tt.wantTract {
				t.Errorf("Tractate = %q, want %q", got.Tractate, tt.wantTract)
			}
			if got.Series != tt.wantSeries {
				t.Errorf("Series = %q, want %q", got.Series, tt.wantSeries)
			}
		})
	}
}

func TestTractates(t *testing.T) {
	labels := Tractates()
	if len(labels) != 40 {
		t.Fatalf("len(Tractates()) = %d, want 40", len(labels))
	}
	if labels[0] != "Berachos" || labels[len(labels)-1] != "Niddah" {
		t.Errorf("cycle order wrong: first=%q last=%q", labels[0], labels[len(labels)-1])
	}

	seen := make(map[string]bool)
	for _, l := range labels {
		if seen[l] {
			t.Errorf("duplicate tractate label %q", l)
		}
		seen[l] = true
	}
}

func TestSeriesLabels(t *testing.T) {
	labels := SeriesLabels()
	if len(labels) != 5 {
		t.Fatalf("len(SeriesLabels()) = %d, want 5", len(labels))
	}
	if labels[len(labels)-1] != SeriesGeneral {
		t.Errorf("last label = %q, want General fallback", labels[len(labels)-1])
	}
}

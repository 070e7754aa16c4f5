// Package classify assigns videos to a tractate and series based on their
// title and description.
package classify

import "strings"

// Fallback labels for content that matches no pattern.
const (
	Unclassified  = "Unclassified"
	SeriesGeneral = "General"
)

// Classification is the category assignment for one video.
type Classification struct {
	// Tractate is the Talmud tractate the video covers, or Unclassified.
	Tractate string
	// Series is the lecture series type within the tractate.
	Series string
}

// tractateEntry maps a canonical tractate label to the title substrings
// that identify it. The table covers all 37 Bavli tractates plus Shekalim,
// with common transliteration variants.
type tractateEntry struct {
	label    string
	patterns []string
}

// Order matters: the first matching entry wins, so the table follows the
// daf yomi cycle order.
var tractates = []tractateEntry{
	{"Berachos", []string{"berachos", "berakhot", "brachot"}},
	{"Shabbos", []string{"shabbos", "shabbat"}},
	{"Eruvin", []string{"eruvin"}},
	{"Pesachim", []string{"pesachim"}},
	{"Shekalim", []string{"shekalim"}},
	{"Yoma", []string{"yoma"}},
	{"Sukkah", []string{"sukkah"}},
	{"Beitzah", []string{"beitzah", "beitza"}},
	{"Rosh_Hashanah", []string{"rosh hashanah", "rosh_hashanah"}},
	{"Taanis", []string{"taanis", "taanit"}},
	{"Megillah", []string{"megillah"}},
	{"Moed_Katan", []string{"moed katan", "moed_katan"}},
	{"Chagigah", []string{"chagigah"}},
	{"Yevamos", []string{"yevamos", "yevamot"}},
	{"Kesubos", []string{"kesubos", "ketubbot"}},
	{"Nedarim", []string{"nedarim"}},
	{"Nazir", []string{"nazir"}},
	{"Sotah", []string{"sotah"}},
	{"Gittin", []string{"gittin"}},
	{"Kiddushin", []string{"kiddushin"}},
	{"Bava_Kamma", []string{"bava kamma", "bava_kamma"}},
	{"Bava_Metzia", []string{"bava metzia", "bava_metzia"}},
	{"Bava_Basra", []string{"bava basra", "bava_basra"}},
	{"Sanhedrin", []string{"sanhedrin"}},
	{"Makkos", []string{"makkos", "makkot"}},
	{"Shevuos", []string{"shevuos", "shevuot"}},
	{"Avodah_Zarah", []string{"avodah zarah", "avodah_zarah"}},
	{"Horayos", []string{"horayos", "horayot"}},
	{"Zevachim", []string{"zevachim"}},
	{"Menachos", []string{"menachos", "menachot"}},
	{"Chullin", []string{"chullin"}},
	{"Bechorot", []string{"bechorot", "bechoros"}},
	{"Arachin", []string{"arachin"}},
	{"Temurah", []string{"temurah"}},
	{"Kerisos", []string{"kerisos", "keritot"}},
	{"Meilah", []string{"meilah"}},
	{"Kinnim", []string{"kinnim"}},
	{"Tamid", []string{"tamid"}},
	{"Midos", []string{"midos", "midot"}},
	{"Niddah", []string{"niddah"}},
}

type seriesEntry struct {
	label    string
	patterns []string
}

var seriesTypes = []seriesEntry{
	{"Daf_Yomi", []string{"daf yomi"}},
	{"Shiurim", []string{"shiur"}},
	{"Lectures", []string{"lecture"}},
	{"Special_Series", []string{"special", "event", "announcement"}},
}

// specialPatterns routes one-off content (events, announcements) into a
// dedicated top-level category regardless of tractate match.
var specialPatterns = []string{"special", "event", "announcement"}

// Classify assigns a tractate and series type based on title and
// description text. Matching is case-insensitive substring search; the
// first matching tractate in cycle order wins.
func Classify(title, description string) Classification {
	combined := strings.ToLower(title) + " " + strings.ToLower(description)

	c := Classification{Tractate: Unclassified, Series: SeriesGeneral}

	for _, t := range tractates {
		if containsAny(combined, t.patterns) {
			c.Tractate = t.label
			break
		}
	}

	for _, s := range seriesTypes {
		if containsAny(combined, s.patterns) {
			c.Series = s.label
			break
		}
	}

	if containsAny(combined, specialPatterns) {
		c.Tractate = "Special_Series"
		c.Series = "Events"
	}

	return c
}

// Tractates returns the canonical tractate labels in cycle order.
func Tractates() []string {
	out := make([]string, len(tractates))
	for i, t := range tractates {
		out[i] = t.label
	}
	return out
}

// SeriesLabels returns the series type labels, most specific first.
func SeriesLabels() []string {
	out := make([]string, 0, len(seriesTypes)+1)
	for _, s := range seriesTypes {
		out = append(out, s.label)
	}
	return append(out, SeriesGeneral)
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

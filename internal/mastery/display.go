package mastery

// Band is a coarse label for a mastery probability, used by the UI.
type Band string

const (
	BandWeak       Band = "weak"
	BandDeveloping Band = "developing"
	BandProficient Band = "proficient"
	BandStrong     Band = "strong"
)

// ResolveBand maps a probability to its display band.
func ResolveBand(p float64) Band {
	switch {
	case p < 0.4:
		return BandWeak
	case p < 0.6:
		return BandDeveloping
	case p < 0.8:
		return BandProficient
	default:
		return BandStrong
	}
}

// Weakest returns the first entry of a ranked snapshot.
func Weakest(snapshot []Entry) (Entry, bool) {
	if len(snapshot) == 0 {
		return Entry{}, false
	}
	return snapshot[0], true
}

// Package scoring turns a found/missing report pair into a match confidence.
package scoring

import (
	"strings"

	"guidinghand/internal/matching/similarity"
	"guidinghand/internal/reports/models"
)

// Confidence levels produced by the scorer.
const (
	ScoreIdentifier = 100 // shared TRN, NIN or passport
	ScoreNameAndDOB = 90  // same DOB, name similarity > 0.8
	ScoreFuzzy      = 70  // same DOB with a looser name, or a close name with both DOBs known
	ScoreAttributes = 75  // close name and most descriptive attributes agree
	ScoreReferenced = 78  // the finder named the missing report explicitly
)

// PersistThreshold is the lowest confidence stored as a match.
const PersistThreshold = 70

// NotifyThreshold must be strictly exceeded to notify trackers.
const NotifyThreshold = 85

// ShouldPersist reports whether a confidence is high enough to record.
func ShouldPersist(score int) bool { return score >= PersistThreshold }

// ShouldNotify reports whether a confidence triggers notification.
func ShouldNotify(score int) bool { return score > NotifyThreshold }

// Score returns the confidence that found and missing describe the same
// person. The first rule that applies decides; 0 means no match.
func Score(found *models.FoundPerson, missing *models.MissingPerson) int {
	if sameIdentifier(found.TRN, missing.TRN) ||
		sameIdentifier(found.NIN, missing.NIN) ||
		sameIdentifier(found.Passport, missing.Passport) {
		return ScoreIdentifier
	}

	nameSim := similarity.Similarity(found.Name, missing.Name)

	if found.DateOfBirth != "" && found.DateOfBirth == missing.DateOfBirth {
		switch {
		case nameSim > 0.8:
			return ScoreNameAndDOB
		case nameSim > 0.6:
			return ScoreFuzzy
		default:
			return 0
		}
	}

	if nameSim <= 0.7 {
		return 0
	}

	matched, total := physicalAgreement(found.Description, missing.Description)
	total++
	if found.FoundLocation.Parish == missing.LastKnownLocation.Parish {
		matched++
	}
	if float64(matched)/float64(total) > 0.6 {
		return ScoreAttributes
	}
	if found.DateOfBirth != "" && missing.DateOfBirth != "" {
		return ScoreFuzzy
	}
	return 0
}

// ValidateReference reports whether a finder's explicit claim that found is
// missing is plausible enough to accept at intake.
func ValidateReference(found *models.FoundPerson, missing *models.MissingPerson) bool {
	nameSim := similarity.Similarity(found.Name, missing.Name)
	if nameSim < 0.6 {
		return false
	}
	matched, total := physicalAgreement(found.Description, missing.Description)
	if total > 0 {
		return float64(matched)/float64(total) >= 0.5 || nameSim > 0.8
	}
	return nameSim > 0.75
}

// physicalAgreement counts the height, skin tone and hair colour pairs that
// both sides supplied, and how many of them agree.
func physicalAgreement(a, b models.Description) (matched, total int) {
	pairs := []struct {
		x, y string
		eq   func(string, string) bool
	}{
		{a.Height, b.Height, func(x, y string) bool { return x == y }},
		{a.SkinTone, b.SkinTone, strings.EqualFold},
		{a.HairColor, b.HairColor, strings.EqualFold},
	}
	for _, p := range pairs {
		if p.x == "" || p.y == "" {
			continue
		}
		total++
		if p.eq(p.x, p.y) {
			matched++
		}
	}
	return matched, total
}

func sameIdentifier(a, b string) bool {
	return a != "" && a == b
}

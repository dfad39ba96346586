// Package dedup decides whether two postings describe the same job using a
// normalized fingerprint followed by fuzzy field similarity.
package dedup

import (
	"strconv"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/cespare/xxhash/v2"

	"github.com/amishk599/jobscout/internal/normalize"
)

// Posting is the part of a job the detector compares.
type Posting struct {
	Title    string
	Company  string
	Location string
}

// Verdict is the result of comparing two postings.
type Verdict struct {
	IsDuplicate bool
	Confidence  float64 // in [0,1]
}

// Thresholds tune the similarity rules.
type Thresholds struct {
	Title        float64 // primary rule
	Company      float64 // primary rule
	Location     float64 // primary rule, skipped when either location is empty
	SameCompany  float64 // secondary rule
	RelaxedTitle float64 // secondary rule
}

// DefaultThresholds returns the standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Title:        0.85,
		Company:      0.80,
		Location:     0.60,
		SameCompany:  0.95,
		RelaxedTitle: 0.75,
	}
}

// Detector compares postings. It is stateless and safe for concurrent use.
type Detector struct {
	thresholds Thresholds
	locations  *normalize.Normalizer
}

// New returns a detector using the given thresholds. Locations are
// normalized with n, or normalize.Default when n is nil.
func New(t Thresholds, n *normalize.Normalizer) *Detector {
	if n == nil {
		n = normalize.Default()
	}
	return &Detector{thresholds: t, locations: n}
}

// Fingerprint hashes the normalized title, company and location using the
// default location aliases.
func Fingerprint(title, company, location string) string {
	return fingerprint(normalize.Default(), title, company, location)
}

// Fingerprint is like the package-level Fingerprint but uses the detector's
// location aliases.
func (d *Detector) Fingerprint(title, company, location string) string {
	return fingerprint(d.locations, title, company, location)
}

func fingerprint(n *normalize.Normalizer, title, company, location string) string {
	key := normalize.Title(title) + "|" + normalize.Company(company) + "|" + n.Location(location)
	return strconv.FormatUint(xxhash.Sum64String(key), 16)
}

// Similarity returns 1 - editDistance/maxLen over runes. It is symmetric and
// returns 0 when either side is empty.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// IsDuplicate compares candidate against existing.
//
// Equal fingerprints are always duplicates with confidence 1. Otherwise the
// primary rule needs similar title and company plus a similar location (or a
// missing one on either side); the secondary rule accepts a near-identical
// company with a fairly similar title.
func (d *Detector) IsDuplicate(candidate, existing Posting) Verdict {
	if d.Fingerprint(candidate.Title, candidate.Company, candidate.Location) ==
		d.Fingerprint(existing.Title, existing.Company, existing.Location) {
		return Verdict{IsDuplicate: true, Confidence: 1}
	}

	candLoc, existLoc := d.locations.Location(candidate.Location), d.locations.Location(existing.Location)
	titleSim := Similarity(normalize.Title(candidate.Title), normalize.Title(existing.Title))
	companySim := Similarity(normalize.Company(candidate.Company), normalize.Company(existing.Company))
	locationSim := Similarity(candLoc, existLoc)

	t := d.thresholds
	if titleSim >= t.Title && companySim >= t.Company {
		if locationSim >= t.Location || candLoc == "" || existLoc == "" {
			return Verdict{
				IsDuplicate: true,
				Confidence:  0.5*titleSim + 0.4*companySim + 0.1*locationSim,
			}
		}
	}

	if companySim >= t.SameCompany && titleSim >= t.RelaxedTitle {
		return Verdict{
			IsDuplicate: true,
			Confidence:  0.5*titleSim + 0.5*companySim,
		}
	}

	return Verdict{}
}

// Match is the best duplicate found in a pool.
type Match struct {
	Index      int // position in the pool
	Confidence float64
}

// FindBestMatch returns the pool entry with the highest positive verdict.
// Ties keep the earliest entry. An empty pool never matches.
func (d *Detector) FindBestMatch(candidate Posting, pool []Posting) (Match, bool) {
	best := Match{Index: -1}
	for i, existing := range pool {
		v := d.IsDuplicate(candidate, existing)
		if v.IsDuplicate && v.Confidence > best.Confidence {
			best = Match{Index: i, Confidence: v.Confidence}
		}
	}
	if best.Index < 0 {
		return Match{}, false
	}
	return best, true
}

// Package classify decides whether a posting fits the entry/mid level
// identity and security profile and scores its relevance.
package classify

import (
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

// Category is the per-match weight and match cap of one keyword category.
type Category struct {
	Points float64
	Cap    int
}

// Weights controls how matches turn into a score.
type Weights struct {
	IdentityPlatforms Category
	CloudPlatforms    Category
	SecurityTools     Category
	IdentityConcepts  Category
	SecurityConcepts  Category
	GoodTitle         float64
	RoleOverlap       float64
	EntryLevel        float64
	Remote            float64
	MaxScore          float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		IdentityPlatforms: Category{Points: 20, Cap: 3},
		CloudPlatforms:    Category{Points: 20, Cap: 3},
		SecurityTools:     Category{Points: 15, Cap: 3},
		IdentityConcepts:  Category{Points: 10, Cap: 4},
		SecurityConcepts:  Category{Points: 10, Cap: 4},
		GoodTitle:         15,
		RoleOverlap:       15,
		EntryLevel:        10,
		Remote:            5,
		MaxScore:          100,
	}
}

// Result is the outcome of classifying one posting.
type Result struct {
	Eligible bool
	Score    float64
	Reasons  []string
}

// Classifier scores postings against keyword tables. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	tables  Tables
	weights Weights
}

// New returns a classifier over the given tables and weights.
func New(tables Tables, weights Weights) *Classifier {
	return &Classifier{tables: tables, weights: weights}
}

// Default returns a classifier with the built-in tables and weights.
func Default() *Classifier {
	return New(DefaultTables(), DefaultWeights())
}

// Classify applies the hard exclusions, then sums the capped category
// scores. A posting is eligible iff its score is positive.
//
// Seniority keywords are checked in the title only, since descriptions often
// mention senior colleagues. Tenure phrases are checked in the description
// only.
func (c *Classifier) Classify(title, description string) Result {
	titleLower := strings.ToLower(title)
	descLower := strings.ToLower(description)
	combined := titleLower + " " + descLower

	if containsAny(titleLower, c.tables.SeniorityTitle) || containsAny(descLower, c.tables.HighTenure) {
		return Result{}
	}

	var (
		score   float64
		reasons []string
	)

	addCapped := func(prefix string, keywords []string, cat Category) {
		matches := 0
		for _, kw := range keywords {
			if matches >= cat.Cap {
				return
			}
			if strings.Contains(combined, kw) {
				matches++
				score += cat.Points
				reasons = append(reasons, prefix+":"+kw)
			}
		}
	}
	addCapped("platform", c.tables.IdentityPlatforms, c.weights.IdentityPlatforms)
	addCapped("cloud", c.tables.CloudPlatforms, c.weights.CloudPlatforms)
	addCapped("tool", c.tables.SecurityTools, c.weights.SecurityTools)
	addCapped("concept", c.tables.IdentityConcepts, c.weights.IdentityConcepts)
	addCapped("cyber", c.tables.SecurityConcepts, c.weights.SecurityConcepts)

	if kw, ok := firstMatch(titleLower, c.tables.GoodTitles); ok {
		score += c.weights.GoodTitle
		reasons = append(reasons, "title:"+kw)
	}

	if containsAny(titleLower, c.tables.SecurityRoles) && containsAny(descLower, c.tables.IdentityTerms) {
		score += c.weights.RoleOverlap
		reasons = append(reasons, "security_iam_overlap")
	}

	if kw, ok := firstMatch(combined, c.tables.EntryLevel); ok {
		score += c.weights.EntryLevel
		reasons = append(reasons, "experience:"+kw)
	}

	if containsAny(combined, c.tables.Remote) {
		score += c.weights.Remote
		reasons = append(reasons, "remote")
	}

	if score <= 0 {
		return Result{}
	}
	return Result{
		Eligible: true,
		Score:    min(score, c.weights.MaxScore),
		Reasons:  reasons,
	}
}

// Score classifies a raw posting and returns the scored value.
func (c *Classifier) Score(p model.RawPosting) model.ScoredPosting {
	r := c.Classify(p.Title, p.Description)
	return model.ScoredPosting{
		RawPosting: p,
		Score:      r.Score,
		Eligible:   r.Eligible,
		Reasons:    r.Reasons,
	}
}

func containsAny(s string, keywords []string) bool {
	_, ok := firstMatch(s, keywords)
	return ok
}

func firstMatch(s string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}

// Package normalize canonicalizes company names, job titles and locations so
// postings from different providers can be compared.
package normalize

import (
	"regexp"
	"strings"
)

var companySuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*,?\s*\b(inc|llc|ltd|corp|corporation|company|co|plc|limited|gmbh|ag|sa|nv)\.?\s*$`),
	regexp.MustCompile(`\s*\(?\bformerly\s+[^)]+\)?\s*$`),
	regexp.MustCompile(`\s*-\s*(remote|hiring|careers)\b.*$`),
}

var titleNoise = []*regexp.Regexp{
	regexp.MustCompile(`\s*-\s*(remote|hybrid|onsite|on-site|contract|full-time|part-time|temp)\b.*$`),
	regexp.MustCompile(`\s*\(\s*(remote|hybrid|onsite|on-site|contract|full-time|part-time|temp)[^)]*\)\s*$`),
	regexp.MustCompile(`\s*\[[^\]]+\]\s*$`),
	regexp.MustCompile(`\s+(i{1,3}|[123])$`),
}

type replacement struct {
	pattern *regexp.Regexp
	with    string
}

// Abbreviations are expanded on whole tokens only, so "org" or "strategy"
// are left alone.
var titleAbbreviations = []replacement{
	{regexp.MustCompile(`\bsr\.?(\s|$)`), "senior$1"},
	{regexp.MustCompile(`\bjr\.?(\s|$)`), "junior$1"},
	{regexp.MustCompile(`\bmgr\b`), "manager"},
	{regexp.MustCompile(`\beng\b`), "engineer"},
}

// LocationAlias maps a common abbreviation to its canonical city name.
type LocationAlias struct {
	Alias     string
	Canonical string
}

// DefaultLocationAliases is applied in order; "washington dc" precedes "dc"
// so the longer form wins.
var DefaultLocationAliases = []LocationAlias{
	{"nyc", "new york"},
	{"ny", "new york"},
	{"la", "los angeles"},
	{"sf", "san francisco"},
	{"washington dc", "washington"},
	{"dc", "washington"},
	{"philly", "philadelphia"},
	{"chi", "chicago"},
}

var (
	countrySuffix   = regexp.MustCompile(`,?\s*\b(usa|united states|u\.s\.a?\.?)\s*$`)
	stateCodeSuffix = regexp.MustCompile(`,\s*[a-z]{2}\s*$`)
)

// Normalizer normalizes locations against a compiled alias table. Company
// and title rules are fixed and live in the package-level functions.
type Normalizer struct {
	aliases []replacement
}

// New compiles aliases into a Normalizer. Each alias matches whole words only.
func New(aliases []LocationAlias) *Normalizer {
	compiled := make([]replacement, 0, len(aliases))
	for _, a := range aliases {
		compiled = append(compiled, replacement{
			pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(a.Alias)) + `\b`),
			with:    strings.ToLower(a.Canonical),
		})
	}
	return &Normalizer{aliases: compiled}
}

var defaultNormalizer = New(DefaultLocationAliases)

// Default returns the Normalizer for DefaultLocationAliases.
func Default() *Normalizer { return defaultNormalizer }

// Location normalizes a location using the default alias table.
func Location(s string) string { return defaultNormalizer.Location(s) }

// Company lowercases s and strips legal-entity suffixes, "(formerly X)"
// annotations and "- hiring" style trailers. Suffix stripping repeats until
// nothing changes, so the result is a fixed point: Company(Company(s)) ==
// Company(s).
func Company(s string) string {
	out := collapse(strings.ToLower(s))
	for {
		prev := out
		for _, re := range companySuffixes {
			out = re.ReplaceAllString(out, "")
		}
		out = collapse(out)
		if out == prev {
			return out
		}
	}
}

// Title lowercases s, strips work-arrangement qualifiers and trailing tier
// markers (I/II/III, 1/2/3), expands common abbreviations and replaces "&"
// with "and".
func Title(s string) string {
	out := collapse(strings.ToLower(s))
	for _, re := range titleNoise {
		out = re.ReplaceAllString(out, "")
	}
	for _, r := range titleAbbreviations {
		out = r.pattern.ReplaceAllString(out, r.with)
	}
	out = strings.ReplaceAll(out, "&", " and ")
	return collapse(out)
}

// Location lowercases s, strips a trailing country marker and a trailing
// ", xx" state code, then applies the alias table once per alias in order.
//
// Suffixes go before aliases, so a trailing state code such as ", la" is
// never expanded as a city alias, and aliases match whole words rather than
// any substring ("chi" leaves "michigan" alone).
func (n *Normalizer) Location(s string) string {
	out := collapse(strings.ToLower(s))
	out = strings.TrimSpace(countrySuffix.ReplaceAllString(out, ""))
	out = strings.TrimSpace(stateCodeSuffix.ReplaceAllString(out, ""))
	for _, a := range n.aliases {
		out = a.pattern.ReplaceAllString(out, a.with)
	}
	return collapse(out)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

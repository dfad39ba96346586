package adapter

import (
	"context"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

const googleCSEURL = "https://www.googleapis.com/customsearch/v1"

// DefaultGoogleCSEQueries target job boards indexed by the search engine.
var DefaultGoogleCSEQueries = []string{
	"IAM analyst job USA junior entry level",
	"identity access management engineer job USA 0-5 years",
	"Okta administrator job USA associate",
	"Azure AD specialist job USA entry level",
	"SailPoint engineer job USA junior",
	"CyberArk administrator job USA",
	"identity management analyst job USA",
	"SSO specialist job USA entry level",
	"PAM administrator job USA junior",
	"IAM engineer job USA associate",
}

var knownCompanies = []string{
	"Google", "Microsoft", "Amazon", "Meta", "Apple", "Netflix",
	"IBM", "Oracle", "Salesforce", "ServiceNow", "Workday",
	"Okta", "SailPoint", "CyberArk", "Ping Identity", "ForgeRock",
	"Saviynt", "One Identity", "SecureAuth", "Auth0",
}

// Job boards host many employers, so their domain says nothing about the company.
var jobBoardDomains = []string{"linkedin", "indeed", "glassdoor"}

var knownCities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
	"San Francisco", "Seattle", "Denver", "Austin", "Boston",
	"Atlanta", "Miami", "Dallas", "San Diego", "San Jose",
	"Washington DC", "Philadelphia", "Portland", "Charlotte",
}

var stateCodeRegex = regexp.MustCompile(`\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)

type cseResponse struct {
	Items []cseItem `json:"items"`
}

type cseItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// GoogleCSEAdapter searches a Google Programmable Search Engine configured
// over job boards. Results carry no structured company or location, so both
// are inferred from the text.
type GoogleCSEAdapter struct {
	base
	apiKey  string
	cx      string
	queries []string
}

// NewGoogleCSEAdapter creates an adapter. Both apiKey and cx are required for
// it to be configured.
func NewGoogleCSEAdapter(apiKey, cx string, queries []string, deps Deps) *GoogleCSEAdapter {
	if len(queries) == 0 {
		queries = DefaultGoogleCSEQueries
	}
	return &GoogleCSEAdapter{
		base:    newBase("google_cse", deps),
		apiKey:  apiKey,
		cx:      cx,
		queries: queries,
	}
}

func (a *GoogleCSEAdapter) Name() string       { return a.name }
func (a *GoogleCSEAdapter) IsConfigured() bool { return a.apiKey != "" && a.cx != "" }
func (a *GoogleCSEAdapter) Queries() []string  { return slices.Clone(a.queries) }

// Search runs one query, asking for the maximum of 10 results.
func (a *GoogleCSEAdapter) Search(ctx context.Context, query string) (model.SearchResult, error) {
	params := url.Values{}
	params.Set("key", a.apiKey)
	params.Set("cx", a.cx)
	params.Set("q", query)
	params.Set("num", "10")
	params.Set("gl", "us")
	params.Set("lr", "lang_en")

	var resp cseResponse
	if err := getJSON(ctx, a.client, googleCSEURL+"?"+params.Encode(), nil, &resp); err != nil {
		return a.fail(query, err)
	}

	raw := make([]model.RawPosting, 0, len(resp.Items))
	for _, item := range resp.Items {
		raw = append(raw, model.RawPosting{
			Title:       item.Title,
			Company:     extractCompany(item.Title, item.Snippet, item.Link),
			Location:    extractLocation(item.Snippet),
			Description: item.Snippet,
			URL:         item.Link,
			Source:      "google_cse",
		})
	}
	return a.keep(raw), nil
}

// extractCompany looks for a well-known employer in the text, then falls back
// to the first label of the result's domain.
func extractCompany(title, snippet, link string) string {
	combined := strings.ToLower(title + " " + snippet)
	for _, c := range knownCompanies {
		if strings.Contains(combined, strings.ToLower(c)) {
			return c
		}
	}

	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "Unknown"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for _, board := range jobBoardDomains {
		if strings.Contains(host, board) {
			return "Unknown"
		}
	}
	label, _, _ := strings.Cut(host, ".")
	if label == "" {
		return "Unknown"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// extractLocation infers a location from a search snippet.
func extractLocation(snippet string) string {
	lower := strings.ToLower(snippet)
	if strings.Contains(lower, "remote") {
		return "Remote"
	}
	for _, city := range knownCities {
		if strings.Contains(lower, strings.ToLower(city)) {
			return city + ", USA"
		}
	}
	if state := stateCodeRegex.FindString(snippet); state != "" {
		return state + ", USA"
	}
	return unknownLocation
}

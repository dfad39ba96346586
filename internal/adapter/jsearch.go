package adapter

import (
	"context"
	"net/http"
	"net/url"
	"slices"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	jsearchBaseURL    = "https://jsearch.p.rapidapi.com/search"
	jsearchHost       = "jsearch.p.rapidapi.com"
	jsearchSnippetLen = 500
)

// DefaultJSearchQueries are used when config does not override them.
var DefaultJSearchQueries = []string{
	"IAM analyst entry level USA",
	"identity access management engineer junior USA",
	"Okta administrator USA",
	"Azure AD specialist USA",
	"SailPoint engineer USA",
	"identity management analyst USA",
	"SSO specialist entry level USA",
	"CyberArk administrator junior USA",
	"IAM security analyst USA",
	"access management engineer USA",
}

type jsearchResponse struct {
	Data []jsearchJob `json:"data"`
}

type jsearchJob struct {
	Title          string   `json:"job_title"`
	Description    string   `json:"job_description"`
	EmployerName   string   `json:"employer_name"`
	City           string   `json:"job_city"`
	State          string   `json:"job_state"`
	ApplyLink      string   `json:"job_apply_link"`
	GoogleLink     string   `json:"job_google_link"`
	MinSalary      *float64 `json:"job_min_salary"`
	MaxSalary      *float64 `json:"job_max_salary"`
	EmploymentType string   `json:"job_employment_type"`
	PostedAtUTC    string   `json:"job_posted_at_datetime_utc"`
}

// JSearchAdapter searches the RapidAPI JSearch aggregator (Indeed, LinkedIn,
// Glassdoor listings).
type JSearchAdapter struct {
	base
	apiKey  string
	queries []string
}

// NewJSearchAdapter creates an adapter. An empty apiKey leaves it
// unconfigured; nil queries select DefaultJSearchQueries.
func NewJSearchAdapter(apiKey string, queries []string, deps Deps) *JSearchAdapter {
	if len(queries) == 0 {
		queries = DefaultJSearchQueries
	}
	return &JSearchAdapter{
		base:    newBase("jsearch", deps),
		apiKey:  apiKey,
		queries: queries,
	}
}

func (a *JSearchAdapter) Name() string       { return a.name }
func (a *JSearchAdapter) IsConfigured() bool { return a.apiKey != "" }
func (a *JSearchAdapter) Queries() []string  { return slices.Clone(a.queries) }

// Search runs one query for postings from the last week in the US.
func (a *JSearchAdapter) Search(ctx context.Context, query string) (model.SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("num_pages", "1")
	params.Set("country", "us")
	params.Set("date_posted", "week")

	header := http.Header{}
	header.Set("X-RapidAPI-Key", a.apiKey)
	header.Set("X-RapidAPI-Host", jsearchHost)

	var resp jsearchResponse
	if err := getJSON(ctx, a.client, jsearchBaseURL+"?"+params.Encode(), header, &resp); err != nil {
		return a.fail(query, err)
	}

	raw := make([]model.RawPosting, 0, len(resp.Data))
	for _, j := range resp.Data {
		raw = append(raw, j.posting())
	}
	return a.keep(raw), nil
}

func (j jsearchJob) posting() model.RawPosting {
	location := unknownLocation
	switch {
	case j.City != "" && j.State != "":
		location = j.City + ", " + j.State
	case j.City != "" || j.State != "":
		location = firstNonEmpty(j.City, j.State)
	}

	return model.RawPosting{
		Title:          j.Title,
		Company:        firstNonEmpty(j.EmployerName, "Unknown"),
		Location:       location,
		Description:    truncate(j.Description, jsearchSnippetLen),
		URL:            firstNonEmpty(j.ApplyLink, j.GoogleLink),
		Source:         "jsearch",
		SalaryMin:      j.MinSalary,
		SalaryMax:      j.MaxSalary,
		EmploymentType: j.EmploymentType,
		PostedAt:       parseTime(j.PostedAtUTC),
	}
}

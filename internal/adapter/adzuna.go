package adapter

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	adzunaBaseURL    = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize   = 50
	adzunaMaxDaysOld = 30
	adzunaSnippetLen = 1500
)

// DefaultAdzunaQueries are kept broad because the free tier allows few
// requests per month.
var DefaultAdzunaQueries = []string{
	"identity access management",
	"IAM analyst",
	"Okta administrator",
	"SailPoint",
	"CyberArk",
	"cybersecurity analyst",
	"security analyst",
	"SOC analyst",
	"security engineer",
	"cloud security",
	"AWS security",
	"DevSecOps",
	"GRC analyst",
	"compliance analyst",
}

type adzunaResponse struct {
	Results []adzunaJob `json:"results"`
	Count   int         `json:"count"`
}

type adzunaJob struct {
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaCompany  `json:"company"`
	Location     adzunaLocation `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractType string         `json:"contract_type"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	Area        []string `json:"area"`
	DisplayName string   `json:"display_name"`
}

// AdzunaAdapter searches the Adzuna jobs API.
type AdzunaAdapter struct {
	base
	appID   string
	appKey  string
	country string
	queries []string
}

// NewAdzunaAdapter creates an adapter. Both appID and appKey are required for
// it to be configured. An empty country defaults to "us".
func NewAdzunaAdapter(appID, appKey, country string, queries []string, deps Deps) *AdzunaAdapter {
	if country == "" {
		country = "us"
	}
	if len(queries) == 0 {
		queries = DefaultAdzunaQueries
	}
	return &AdzunaAdapter{
		base:    newBase("adzuna", deps),
		appID:   appID,
		appKey:  appKey,
		country: country,
		queries: queries,
	}
}

func (a *AdzunaAdapter) Name() string       { return a.name }
func (a *AdzunaAdapter) IsConfigured() bool { return a.appID != "" && a.appKey != "" }
func (a *AdzunaAdapter) Queries() []string  { return slices.Clone(a.queries) }

// Search fetches the first page of postings from the last 30 days.
func (a *AdzunaAdapter) Search(ctx context.Context, query string) (model.SearchResult, error) {
	endpoint := fmt.Sprintf("%s/%s/search/1", adzunaBaseURL, a.country)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", query)
	params.Set("max_days_old", strconv.Itoa(adzunaMaxDaysOld))
	params.Set("content-type", "application/json")

	var resp adzunaResponse
	if err := getJSON(ctx, a.client, endpoint+"?"+params.Encode(), nil, &resp); err != nil {
		return a.fail(query, err)
	}

	raw := make([]model.RawPosting, 0, len(resp.Results))
	for _, j := range resp.Results {
		raw = append(raw, j.posting())
	}
	return a.keep(raw), nil
}

func (j adzunaJob) posting() model.RawPosting {
	// area runs from country down to town; the last two read as "City, State".
	var parts []string
	for _, a := range j.Location.Area {
		if a != "" {
			parts = append(parts, a)
		}
	}
	location := unknownLocation
	if len(parts) > 0 {
		location = strings.Join(parts[max(len(parts)-2, 0):], ", ")
	}

	return model.RawPosting{
		Title:          extractText(j.Title),
		Company:        firstNonEmpty(j.Company.DisplayName, "Unknown"),
		Location:       location,
		Description:    truncate(extractText(j.Description), adzunaSnippetLen),
		URL:            j.RedirectURL,
		Source:         "adzuna",
		SalaryMin:      positive(j.SalaryMin),
		SalaryMax:      positive(j.SalaryMax),
		EmploymentType: j.ContractType,
		PostedAt:       parseTime(j.Created),
	}
}

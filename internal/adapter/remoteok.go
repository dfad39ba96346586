package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	remoteOKURL        = "https://remoteok.com/api"
	remoteOKUserAgent  = "jobscout/1.0 (job aggregator for security roles)"
	remoteOKSnippetLen = 1500
	remoteOKQuery      = "all remote jobs"
)

// remoteOKPrefilter drops the bulk of the unfiltered feed before scoring.
var remoteOKPrefilter = []string{
	"security", "iam", "identity", "cybersecurity", "infosec",
	"soc", "compliance", "audit", "risk", "threat", "vulnerability",
	"penetration", "forensic", "incident", "devsecops", "secops",
	"okta", "azure ad", "active directory", "sso", "saml",
}

type remoteOKJob struct {
	ID          json.RawMessage `json:"id"` // string or number depending on the record
	Slug        string          `json:"slug"`
	Position    string          `json:"position"`
	Company     string          `json:"company"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	URL         string          `json:"url"`
	Date        string          `json:"date"`
	SalaryMin   float64         `json:"salary_min"`
	SalaryMax   float64         `json:"salary_max"`
}

// RemoteOKAdapter reads the RemoteOK feed. It needs no credentials and
// returns the whole feed in one call, so it has a single query.
type RemoteOKAdapter struct {
	base
}

// NewRemoteOKAdapter creates an adapter for the public RemoteOK feed.
func NewRemoteOKAdapter(deps Deps) *RemoteOKAdapter {
	return &RemoteOKAdapter{base: newBase("remoteok", deps)}
}

func (a *RemoteOKAdapter) Name() string       { return a.name }
func (a *RemoteOKAdapter) IsConfigured() bool { return true }
func (a *RemoteOKAdapter) Queries() []string  { return []string{remoteOKQuery} }

// Search fetches the feed and keeps security-related postings. The query is
// only used for logging.
func (a *RemoteOKAdapter) Search(ctx context.Context, query string) (model.SearchResult, error) {
	header := http.Header{}
	header.Set("User-Agent", remoteOKUserAgent)

	var records []json.RawMessage
	if err := getJSON(ctx, a.client, remoteOKURL, header, &records); err != nil {
		return a.fail(query, err)
	}

	// The first record is a legal notice.
	if len(records) > 1 {
		records = records[1:]
	}

	raw := make([]model.RawPosting, 0, len(records))
	for _, rec := range records {
		var j remoteOKJob
		if err := json.Unmarshal(rec, &j); err != nil {
			continue
		}
		if j.Position == "" {
			continue
		}
		p := j.posting()
		combined := strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(p.Tags, " "))
		if !containsKeyword(combined, remoteOKPrefilter) {
			continue
		}
		raw = append(raw, p)
	}
	return a.keep(raw), nil
}

func (j remoteOKJob) posting() model.RawPosting {
	u := j.URL
	if id := strings.Trim(string(j.ID), `"`); u == "" && id != "" && id != "null" {
		u = "https://remoteok.com/remote-jobs/" + id + "-" + j.Slug
	}

	return model.RawPosting{
		Title:          j.Position,
		Company:        firstNonEmpty(j.Company, "Unknown"),
		Location:       "Remote",
		Description:    truncate(extractText(j.Description), remoteOKSnippetLen),
		URL:            u,
		Source:         "remoteok",
		SalaryMin:      positive(j.SalaryMin),
		SalaryMax:      positive(j.SalaryMax),
		EmploymentType: "FULLTIME",
		PostedAt:       parseTime(j.Date),
		Tags:           j.Tags,
	}
}

func containsKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobscout/internal/classify"
	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/normalize"
	"github.com/amishk599/jobscout/internal/ratelimit"
	"github.com/amishk599/jobscout/internal/scheduler"
)

// Provider names accepted under providers:.
const (
	JSearch   = "jsearch"
	Adzuna    = "adzuna"
	RemoteOK  = "remoteok"
	GoogleCSE = "google_cse"
)

// ProviderNames lists the providers in registration order.
var ProviderNames = []string{JSearch, Adzuna, RemoteOK, GoogleCSE}

const slackWebhookPrefix = "https://hooks.slack.com/"

// Config is the root configuration for jobscout.
type Config struct {
	Schedule     ScheduleConfig
	Store        StoreConfig
	Providers    map[string]ProviderConfig `validate:"dive,keys,oneof=jsearch adzuna remoteok google_cse,endkeys"`
	Dedup        DedupConfig
	Scoring      classify.Weights
	Notification NotificationConfig
	Metrics      MetricsConfig
	Lock         LockConfig
	HTTP         HTTPConfig
}

// ScheduleConfig controls the cron triggers.
type ScheduleConfig struct {
	ScanCron    string        `validate:"cron"`
	CleanupCron string        `validate:"cron"`
	ScanTimeout time.Duration `validate:"gt=0"`
	RunOnStart  bool
}

// StoreConfig selects and tunes the job store.
type StoreConfig struct {
	Driver     string        `validate:"oneof=sqlite postgres"`
	Path       string        `validate:"required_if=Driver sqlite"`
	DSN        string        `validate:"required_if=Driver postgres"`
	Retention  time.Duration `validate:"gt=0"`
	StaleAfter time.Duration `validate:"gt=0"`
	StatsTTL   time.Duration `validate:"gte=0"`
}

// ProviderConfig holds one provider's credentials, queries and pacing.
// Only the credential fields a provider needs are read.
type ProviderConfig struct {
	Enabled bool
	APIKey  string
	AppID   string
	AppKey  string
	CX      string
	Country string
	Queries []string // nil means the provider's defaults
	Pacing  ratelimit.Config
}

// DedupConfig controls duplicate detection during the merge step.
type DedupConfig struct {
	Title        float64 `validate:"gte=0,lte=1"`
	Company      float64 `validate:"gte=0,lte=1"`
	Location     float64 `validate:"gte=0,lte=1"`
	SameCompany  float64 `validate:"gte=0,lte=1"`
	RelaxedTitle float64 `validate:"gte=0,lte=1"`
	Fuzzy        bool
	FuzzyWindow  int `validate:"gte=0"`

	// LocationAliases extend the built-in location aliases and are applied
	// before them.
	LocationAliases []LocationAlias `validate:"dive"`
}

// LocationAlias maps an abbreviation to a canonical city name.
type LocationAlias struct {
	Alias     string `yaml:"alias" validate:"required"`
	Canonical string `yaml:"canonical" validate:"required"`
}

// Normalizer compiles the configured aliases ahead of the defaults.
func (d DedupConfig) Normalizer() *normalize.Normalizer {
	if len(d.LocationAliases) == 0 {
		return normalize.Default()
	}
	aliases := make([]normalize.LocationAlias, 0, len(d.LocationAliases)+len(normalize.DefaultLocationAliases))
	for _, a := range d.LocationAliases {
		aliases = append(aliases, normalize.LocationAlias{Alias: a.Alias, Canonical: a.Canonical})
	}
	return normalize.New(append(aliases, normalize.DefaultLocationAliases...))
}

// Thresholds returns the detector thresholds.
func (d DedupConfig) Thresholds() dedup.Thresholds {
	return dedup.Thresholds{
		Title:        d.Title,
		Company:      d.Company,
		Location:     d.Location,
		SameCompany:  d.SameCompany,
		RelaxedTitle: d.RelaxedTitle,
	}
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type" validate:"oneof=log slack"`
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LockConfig enables the cross-process scan lock when RedisURL is set.
type LockConfig struct {
	RedisURL string `yaml:"redis_url" validate:"omitempty,url"`
}

// HTTPConfig tunes the shared provider HTTP client.
type HTTPConfig struct {
	Timeout    time.Duration `validate:"gt=0"`
	MaxRetries int           `validate:"gte=0,lte=10"`
}

// Provider returns the settings for name. Providers missing from the file
// are enabled with default pacing and no credentials.
func (c *Config) Provider(name string) ProviderConfig {
	if p, ok := c.Providers[name]; ok {
		return p
	}
	return ProviderConfig{Enabled: true, Pacing: ratelimit.DefaultConfig()}
}

// Pacing returns the throttle settings of every provider, keyed by name.
func (c *Config) Pacing() map[string]ratelimit.Config {
	out := make(map[string]ratelimit.Config, len(ProviderNames))
	for _, name := range ProviderNames {
		out[name] = c.Provider(name).Pacing
	}
	return out
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Schedule     rawScheduleConfig            `yaml:"schedule"`
	Store        rawStoreConfig               `yaml:"store"`
	Providers    map[string]rawProviderConfig `yaml:"providers"`
	Dedup        rawDedupConfig               `yaml:"dedup"`
	Scoring      rawScoringConfig             `yaml:"scoring"`
	Notification NotificationConfig           `yaml:"notification"`
	Metrics      MetricsConfig                `yaml:"metrics"`
	Lock         LockConfig                   `yaml:"lock"`
	HTTP         rawHTTPConfig                `yaml:"http"`
}

type rawScheduleConfig struct {
	ScanCron    string `yaml:"scan_cron"`
	CleanupCron string `yaml:"cleanup_cron"`
	ScanTimeout string `yaml:"scan_timeout"`
	RunOnStart  bool   `yaml:"run_on_start"`
}

type rawStoreConfig struct {
	Driver     string `yaml:"driver"`
	Path       string `yaml:"path"`
	DSN        string `yaml:"dsn"`
	Retention  string `yaml:"retention"`
	StaleAfter string `yaml:"stale_after"`
	StatsTTL   string `yaml:"stats_ttl"`
}

type rawProviderConfig struct {
	Enabled       *bool    `yaml:"enabled"`
	APIKey        string   `yaml:"api_key"`
	AppID         string   `yaml:"app_id"`
	AppKey        string   `yaml:"app_key"`
	CX            string   `yaml:"cx"`
	Country       string   `yaml:"country"`
	Queries       []string `yaml:"queries"`
	Delay         string   `yaml:"delay"`
	DelayStep     string   `yaml:"delay_step"`
	MaxDelay      string   `yaml:"max_delay"`
	ThrottlePause string   `yaml:"throttle_pause"`
	MaxPause      string   `yaml:"max_pause"`
}

type rawDedupConfig struct {
	Title        *float64 `yaml:"title_threshold"`
	Company      *float64 `yaml:"company_threshold"`
	Location     *float64 `yaml:"location_threshold"`
	SameCompany  *float64 `yaml:"same_company_threshold"`
	RelaxedTitle *float64 `yaml:"relaxed_title_threshold"`
	Fuzzy        bool     `yaml:"fuzzy"`
	FuzzyWindow  int      `yaml:"fuzzy_window"`

	LocationAliases []LocationAlias `yaml:"location_aliases"`
}

type rawCategory struct {
	Points *float64 `yaml:"points"`
	Cap    *int     `yaml:"cap"`
}

type rawScoringConfig struct {
	IdentityPlatforms rawCategory `yaml:"identity_platforms"`
	CloudPlatforms    rawCategory `yaml:"cloud_platforms"`
	SecurityTools     rawCategory `yaml:"security_tools"`
	IdentityConcepts  rawCategory `yaml:"identity_concepts"`
	SecurityConcepts  rawCategory `yaml:"security_concepts"`
	GoodTitle         *float64    `yaml:"good_title"`
	RoleOverlap       *float64    `yaml:"role_overlap"`
	EntryLevel        *float64    `yaml:"entry_level"`
	Remote            *float64    `yaml:"remote"`
}

type rawHTTPConfig struct {
	Timeout    string `yaml:"timeout"`
	MaxRetries *int   `yaml:"max_retries"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. A .env file next to the config is loaded first so that
// ${VAR} references can point at secrets kept out of the YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg, err := build(raw)
	if err != nil {
		return nil, err
	}
	if err := check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func build(raw rawConfig) (*Config, error) {
	var err error
	cfg := &Config{
		Schedule: ScheduleConfig{
			ScanCron:    orDefault(raw.Schedule.ScanCron, scheduler.DefaultScanSpec),
			CleanupCron: orDefault(raw.Schedule.CleanupCron, scheduler.DefaultCleanupSpec),
			RunOnStart:  raw.Schedule.RunOnStart,
		},
		Store: StoreConfig{
			Driver: orDefault(raw.Store.Driver, "sqlite"),
			Path:   raw.Store.Path,
			DSN:    raw.Store.DSN,
		},
		Providers:    make(map[string]ProviderConfig, len(raw.Providers)),
		Notification: raw.Notification,
		Metrics:      raw.Metrics,
		Lock:         raw.Lock,
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "jobscout.db"
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}

	durations := []struct {
		field string
		raw   string
		def   time.Duration
		dst   *time.Duration
	}{
		{"schedule.scan_timeout", raw.Schedule.ScanTimeout, 10 * time.Minute, &cfg.Schedule.ScanTimeout},
		{"store.retention", raw.Store.Retention, 30 * 24 * time.Hour, &cfg.Store.Retention},
		{"store.stale_after", raw.Store.StaleAfter, 7 * 24 * time.Hour, &cfg.Store.StaleAfter},
		{"store.stats_ttl", raw.Store.StatsTTL, 5 * time.Minute, &cfg.Store.StatsTTL},
		{"http.timeout", raw.HTTP.Timeout, 30 * time.Second, &cfg.HTTP.Timeout},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(d.field, d.raw, d.def); err != nil {
			return nil, err
		}
	}

	cfg.HTTP.MaxRetries = 2
	if raw.HTTP.MaxRetries != nil {
		cfg.HTTP.MaxRetries = *raw.HTTP.MaxRetries
	}

	for name, rp := range raw.Providers {
		pc, err := buildProvider(name, rp)
		if err != nil {
			return nil, err
		}
		cfg.Providers[name] = pc
	}

	cfg.Dedup = buildDedup(raw.Dedup)

	if cfg.Scoring, err = buildScoring(raw.Scoring); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildProvider(name string, rp rawProviderConfig) (ProviderConfig, error) {
	pc := ProviderConfig{
		Enabled: rp.Enabled == nil || *rp.Enabled,
		APIKey:  rp.APIKey,
		AppID:   rp.AppID,
		AppKey:  rp.AppKey,
		CX:      rp.CX,
		Country: rp.Country,
		Queries: rp.Queries,
	}

	def := ratelimit.DefaultConfig()
	pacing := []struct {
		field string
		raw   string
		def   time.Duration
		dst   *time.Duration
	}{
		{"delay", rp.Delay, def.Delay, &pc.Pacing.Delay},
		{"delay_step", rp.DelayStep, def.Step, &pc.Pacing.Step},
		{"max_delay", rp.MaxDelay, def.MaxDelay, &pc.Pacing.MaxDelay},
		{"throttle_pause", rp.ThrottlePause, def.Pause, &pc.Pacing.Pause},
		{"max_pause", rp.MaxPause, def.MaxPause, &pc.Pacing.MaxPause},
	}
	for _, p := range pacing {
		d, err := parseDuration("providers."+name+"."+p.field, p.raw, p.def)
		if err != nil {
			return ProviderConfig{}, err
		}
		if d < 0 {
			return ProviderConfig{}, fmt.Errorf("providers.%s.%s must not be negative, got %v", name, p.field, d)
		}
		*p.dst = d
	}
	if pc.Pacing.MaxDelay < pc.Pacing.Delay {
		return ProviderConfig{}, fmt.Errorf("providers.%s.max_delay (%v) is below delay (%v)", name, pc.Pacing.MaxDelay, pc.Pacing.Delay)
	}
	if pc.Pacing.MaxPause < pc.Pacing.Pause {
		if rp.MaxPause != "" {
			return ProviderConfig{}, fmt.Errorf("providers.%s.max_pause (%v) is below throttle_pause (%v)", name, pc.Pacing.MaxPause, pc.Pacing.Pause)
		}
		pc.Pacing.MaxPause = pc.Pacing.Pause
	}
	return pc, nil
}

func buildDedup(rd rawDedupConfig) DedupConfig {
	def := dedup.DefaultThresholds()
	window := rd.FuzzyWindow
	if window == 0 {
		window = 500
	}
	return DedupConfig{
		Title:        floatOr(rd.Title, def.Title),
		Company:      floatOr(rd.Company, def.Company),
		Location:     floatOr(rd.Location, def.Location),
		SameCompany:  floatOr(rd.SameCompany, def.SameCompany),
		RelaxedTitle: floatOr(rd.RelaxedTitle, def.RelaxedTitle),
		Fuzzy:        rd.Fuzzy,
		FuzzyWindow:  window,

		LocationAliases: rd.LocationAliases,
	}
}

func buildScoring(rs rawScoringConfig) (classify.Weights, error) {
	w := classify.DefaultWeights()
	categories := []struct {
		field string
		raw   rawCategory
		dst   *classify.Category
	}{
		{"identity_platforms", rs.IdentityPlatforms, &w.IdentityPlatforms},
		{"cloud_platforms", rs.CloudPlatforms, &w.CloudPlatforms},
		{"security_tools", rs.SecurityTools, &w.SecurityTools},
		{"identity_concepts", rs.IdentityConcepts, &w.IdentityConcepts},
		{"security_concepts", rs.SecurityConcepts, &w.SecurityConcepts},
	}
	for _, c := range categories {
		if c.raw.Points != nil {
			if *c.raw.Points < 0 {
				return w, fmt.Errorf("scoring.%s.points must not be negative", c.field)
			}
			c.dst.Points = *c.raw.Points
		}
		if c.raw.Cap != nil {
			if *c.raw.Cap < 0 {
				return w, fmt.Errorf("scoring.%s.cap must not be negative", c.field)
			}
			c.dst.Cap = *c.raw.Cap
		}
	}

	bonuses := []struct {
		field string
		raw   *float64
		dst   *float64
	}{
		{"good_title", rs.GoodTitle, &w.GoodTitle},
		{"role_overlap", rs.RoleOverlap, &w.RoleOverlap},
		{"entry_level", rs.EntryLevel, &w.EntryLevel},
		{"remote", rs.Remote, &w.Remote},
	}
	for _, b := range bonuses {
		if b.raw == nil {
			continue
		}
		if *b.raw < 0 {
			return w, fmt.Errorf("scoring.%s must not be negative", b.field)
		}
		*b.dst = *b.raw
	}
	return w, nil
}

// check runs the struct-tag rules and the cross-field rules the tags cannot express.
func check(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	}

	if cfg.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Addr); err != nil {
			return fmt.Errorf("metrics.addr %q: %w", cfg.Metrics.Addr, err)
		}
	}

	enabled := 0
	for _, name := range ProviderNames {
		if cfg.Provider(name).Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}
	return nil
}

// parseDuration accepts time.ParseDuration syntax plus a whole-day "Nd" form.
func parseDuration(field, s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/abelbrown/fmconsole/internal/fetch"
)

// EnvPrefix prefixes every environment override (FMCONSOLE_API_TOKEN, ...).
const EnvPrefix = "FMCONSOLE"

// Config is the persistent application configuration
type Config struct {
	API       APIConfig        `mapstructure:"api" json:"api"`
	UI        UIConfig         `mapstructure:"ui" json:"ui"`
	Resources []ResourceConfig `mapstructure:"resources" json:"resources" validate:"dive"`

	// DataDir holds the snapshot database and logs. Defaults to ~/.fmconsole.
	DataDir string `mapstructure:"data_dir" json:"data_dir,omitempty"`
}

// APIConfig says where the backend is and how to talk to it
type APIConfig struct {
	BaseURL           string  `mapstructure:"base_url" json:"base_url"`
	Token             string  `mapstructure:"token" json:"token,omitempty"`
	CompanyID         string  `mapstructure:"company_id" json:"company_id,omitempty"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" json:"timeout_seconds" validate:"gt=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second" validate:"min=0"`
	Burst             int     `mapstructure:"burst" json:"burst" validate:"min=0"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	PerPage         int    `mapstructure:"per_page" json:"per_page" validate:"gt=0"`
	DebounceMs      int    `mapstructure:"debounce_ms" json:"debounce_ms" validate:"min=0"`
	DefaultResource string `mapstructure:"default_resource" json:"default_resource"`
}

// ResourceConfig describes one list screen
type ResourceConfig struct {
	Name         string `mapstructure:"name" json:"name" validate:"required"`
	Title        string `mapstructure:"title" json:"title,omitempty"`
	Path         string `mapstructure:"path" json:"path" validate:"required"`
	ResourceKey  string `mapstructure:"resource_key" json:"resource_key,omitempty"`
	Auth         string `mapstructure:"auth" json:"auth,omitempty" validate:"omitempty,oneof=bearer query none"`
	CompanyParam string `mapstructure:"company_param" json:"company_param,omitempty"`

	// SearchFields are matched locally; SearchParam is the q[...] key sent
	// when the backend paginates.
	SearchFields    []string `mapstructure:"search_fields" json:"search_fields,omitempty"`
	SearchParam     string   `mapstructure:"search_param" json:"search_param,omitempty"`
	ServerPaginated bool     `mapstructure:"server_paginated" json:"server_paginated"`
	PerPage         int      `mapstructure:"per_page" json:"per_page,omitempty" validate:"min=0"`

	// Sort is the initial sort, e.g. "name" or "-created_at".
	Sort    string         `mapstructure:"sort" json:"sort,omitempty"`
	Columns []ColumnConfig `mapstructure:"columns" json:"columns,omitempty" validate:"dive"`
}

// ColumnConfig is one table column
type ColumnConfig struct {
	Key   string `mapstructure:"key" json:"key" validate:"required"`
	Title string `mapstructure:"title" json:"title"`
	Width int    `mapstructure:"width" json:"width,omitempty" validate:"min=0"`
}

// Endpoint converts the resource to what the fetcher needs.
func (r ResourceConfig) Endpoint() fetch.Endpoint {
	return fetch.Endpoint{
		Name:         r.Name,
		Path:         r.Path,
		ResourceKey:  r.ResourceKey,
		Auth:         fetch.AuthStyle(r.Auth),
		CompanyParam: r.CompanyParam,
	}
}

// DisplayTitle returns Title, or Name when no title is set.
func (r ResourceConfig) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "",
			TimeoutSeconds:    30,
			RequestsPerSecond: 4,
			Burst:             4,
		},
		UI: UIConfig{
			PerPage:         10,
			DebounceMs:      1000,
			DefaultResource: "countries",
		},
		Resources: DefaultResources(),
	}
}

// DefaultResources are the ops-account screens of the web console.
func DefaultResources() []ResourceConfig {
	return []ResourceConfig{
		{
			Name:         "countries",
			Title:        "Countries",
			Path:         "headquarters",
			ResourceKey:  "headquarters",
			SearchFields: []string{"name", "country_name", "company_name", "organization_name"},
			Sort:         "country_name",
			Columns: []ColumnConfig{
				{Key: "id", Title: "ID", Width: 6},
				{Key: "country_name", Title: "Country", Width: 24},
				{Key: "company_name", Title: "Company", Width: 24},
				{Key: "organization_name", Title: "Organization", Width: 24},
				{Key: "active", Title: "Active", Width: 7},
			},
		},
		{
			Name:            "sites",
			Title:           "Sites",
			Path:            "pms/sites/all_site_list",
			ResourceKey:     "sites",
			SearchFields:    []string{"name", "code", "city", "company_name"},
			SearchParam:     "search_all_fields_cont",
			ServerPaginated: true,
			Columns: []ColumnConfig{
				{Key: "name", Title: "Site Name", Width: 24},
				{Key: "code", Title: "Code", Width: 10},
				{Key: "city", Title: "City", Width: 14},
				{Key: "site_type", Title: "Type", Width: 12},
				{Key: "company_name", Title: "Company", Width: 20},
				{Key: "active", Title: "Active", Width: 7},
			},
		},
		{
			Name:         "regions",
			Title:        "Regions",
			Path:         "pms/regions",
			ResourceKey:  "regions",
			SearchFields: []string{"name", "country_name", "company_name"},
			Sort:         "name",
			Columns: []ColumnConfig{
				{Key: "id", Title: "ID", Width: 6},
				{Key: "name", Title: "Region", Width: 24},
				{Key: "country_name", Title: "Country", Width: 20},
				{Key: "company_name", Title: "Company", Width: 24},
			},
		},
		{
			Name:         "companies",
			Title:        "Companies",
			Path:         "pms/company_setups/company_index",
			ResourceKey:  "company_setups",
			SearchFields: []string{"name", "organization_name"},
			Sort:         "name",
			Columns: []ColumnConfig{
				{Key: "id", Title: "ID", Width: 6},
				{Key: "name", Title: "Company", Width: 30},
				{Key: "organization_name", Title: "Organization", Width: 24},
			},
		},
		{
			Name:         "demand-notes",
			Title:        "Demand Notes",
			Path:         "demand_notes",
			ResourceKey:  "demand_notes",
			SearchFields: []string{"note_number", "flat", "tower", "status"},
			Sort:         "-due_date",
			Columns: []ColumnConfig{
				{Key: "note_number", Title: "Note", Width: 10},
				{Key: "flat", Title: "Flat", Width: 8},
				{Key: "tower", Title: "Tower", Width: 10},
				{Key: "amount", Title: "Amount", Width: 10},
				{Key: "due_date", Title: "Due", Width: 10},
				{Key: "status", Title: "Status", Width: 8},
			},
		},
		{
			Name:         "home-loans",
			Title:        "Home Loan Requests",
			Path:         "home_loan_requests",
			ResourceKey:  "home_loans",
			SearchFields: []string{"applicant_name", "flat", "bank_name", "status"},
			Sort:         "applicant_name",
			Columns: []ColumnConfig{
				{Key: "id", Title: "ID", Width: 6},
				{Key: "applicant_name", Title: "Applicant", Width: 20},
				{Key: "flat", Title: "Flat", Width: 8},
				{Key: "bank_name", Title: "Bank", Width: 16},
				{Key: "loan_amount", Title: "Amount", Width: 10},
				{Key: "status", Title: "Status", Width: 10},
			},
		},
		{
			Name:         "projects",
			Title:        "Projects",
			Path:         "project_details",
			ResourceKey:  "records",
			SearchFields: []string{"project_name", "city", "building_type", "status"},
			Sort:         "project_name",
			Columns: []ColumnConfig{
				{Key: "id", Title: "ID", Width: 6},
				{Key: "project_name", Title: "Project", Width: 24},
				{Key: "city", Title: "City", Width: 14},
				{Key: "building_type", Title: "Type", Width: 14},
				{Key: "towers", Title: "Towers", Width: 7},
				{Key: "status", Title: "Status", Width: 12},
			},
		},
	}
}

// Dir returns the data directory, ~/.fmconsole unless DataDir is set.
func (c *Config) Dir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fmconsole")
}

// DBPath returns the snapshot database path
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir(), "fmconsole.db")
}

// Timeout returns the HTTP timeout
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Debounce returns the search debounce interval
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.UI.DebounceMs) * time.Millisecond
}

// RequestContext returns the per-session request values
func (c *Config) RequestContext() fetch.RequestContext {
	return fetch.RequestContext{
		BaseURL:   c.API.BaseURL,
		Token:     c.API.Token,
		CompanyID: c.API.CompanyID,
	}
}

// Resource looks up a resource by name
func (c *Config) Resource(name string) (ResourceConfig, bool) {
	for _, r := range c.Resources {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return ResourceConfig{}, false
}

// ResourceNames lists configured resource names in order
func (c *Config) ResourceNames() []string {
	names := make([]string, len(c.Resources))
	for i, r := range c.Resources {
		names[i] = r.Name
	}
	return names
}

// Validate checks field constraints and that resource names are unique
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+" "+fetch.ValidationMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Resources))
	for _, r := range c.Resources {
		key := strings.ToLower(r.Name)
		if seen[key] {
			return fmt.Errorf("invalid config: duplicate resource %q", r.Name)
		}
		seen[key] = true
	}
	return nil
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".fmconsole", "config.json")
}

// envKeys are the settings that can be overridden from the environment.
var envKeys = []string{
	"api.base_url",
	"api.token",
	"api.company_id",
	"api.timeout_seconds",
	"api.requests_per_second",
	"api.burst",
	"ui.per_page",
	"ui.debounce_ms",
	"ui.default_resource",
	"data_dir",
}

// Load reads config from path (ConfigPath when empty), applies
// FMCONSOLE_* environment overrides, and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	def := DefaultConfig()
	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_seconds", def.API.TimeoutSeconds)
	v.SetDefault("api.requests_per_second", def.API.RequestsPerSecond)
	v.SetDefault("api.burst", def.API.Burst)
	v.SetDefault("ui.per_page", def.UI.PerPage)
	v.SetDefault("ui.debounce_ms", def.UI.DebounceMs)
	v.SetDefault("ui.default_resource", def.UI.DefaultResource)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Resources) == 0 {
		cfg.Resources = def.Resources
	}
	cfg.API.BaseURL = fetch.NormalizeBaseURL(cfg.API.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to path (ConfigPath when empty)
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // Restrictive permissions for the API token
}

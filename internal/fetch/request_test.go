package fetch

import (
	"net/url"
	"testing"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"fm-uat-api.lockated.com", "https://fm-uat-api.lockated.com"},
		{" https://api.example.com/ ", "https://api.example.com"},
		{"http://localhost:8080//", "http://localhost:8080"},
		{"https://api.example.com/v1/", "https://api.example.com/v1"},
	}
	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	rc := RequestContext{BaseURL: "api.example.com/", Token: "tok", CompanyID: "7"}

	tests := []struct {
		name   string
		ep     Endpoint
		params url.Values
		want   string
	}{
		{"appends json", Endpoint{Path: "headquarters"}, nil, "https://api.example.com/headquarters.json"},
		{"keeps extension", Endpoint{Path: "/reports/list.csv"}, nil, "https://api.example.com/reports/list.csv"},
		{"params sorted", Endpoint{Path: "sites"}, url.Values{"page": {"1"}, "per_page": {"10"}},
			"https://api.example.com/sites.json?page=1&per_page=10"},
		{"company param", Endpoint{Path: "sites", CompanyParam: "company_id"}, nil,
			"https://api.example.com/sites.json?company_id=7"},
		{"query auth", Endpoint{Path: "sites", Auth: AuthQuery}, nil,
			"https://api.example.com/sites.json?access_token=tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(rc, tt.ep, tt.params); got != tt.want {
				t.Errorf("BuildURL = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	got := redact("https://api.example.com/x.json?access_token=abc&page=2")
	want := "https://api.example.com/x.json?access_token=REDACTED&page=2"
	if got != want {
		t.Errorf("redact = %q, want %q", got, want)
	}
}

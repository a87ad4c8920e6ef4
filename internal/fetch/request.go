package fetch

import (
	"net/url"
	"path"
	"strings"
)

// RequestContext carries the per-session values every request needs.
// It is passed explicitly; nothing is read from global storage.
type RequestContext struct {
	BaseURL   string `json:"base_url"`
	Token     string `json:"token"`
	CompanyID string `json:"company_id"`
}

// AuthStyle says where the token goes.
type AuthStyle string

const (
	// AuthBearer sends "Authorization: Bearer <token>".
	AuthBearer AuthStyle = "bearer"
	// AuthQuery sends the token as the access_token query parameter.
	AuthQuery AuthStyle = "query"
	// AuthNone sends no credentials.
	AuthNone AuthStyle = "none"
)

// Endpoint describes one list resource on the backend.
type Endpoint struct {
	Name string `json:"name"`
	// Path is relative to the base URL, e.g. "pms/sites/all_site_list".
	// ".json" is appended unless the path already has an extension.
	Path string `json:"path"`
	// ResourceKey is the object key holding the array in keyed responses
	// ({"headquarters": [...]}). Optional.
	ResourceKey string    `json:"resource_key"`
	Auth        AuthStyle `json:"auth"`
	// CompanyParam, when set, sends RequestContext.CompanyID under this
	// query parameter name.
	CompanyParam string `json:"company_param"`
}

// authStyle returns the endpoint's auth style, defaulting to bearer.
func (e Endpoint) authStyle() AuthStyle {
	if e.Auth == "" {
		return AuthBearer
	}
	return e.Auth
}

// NormalizeBaseURL trims whitespace, adds https:// when no scheme is given,
// and strips trailing slashes. An empty input stays empty.
func NormalizeBaseURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return strings.TrimRight(s, "/")
}

// BuildURL assembles {base}/{path}.json?{params} for ep. params is not
// modified. The returned URL includes credentials when ep uses AuthQuery.
func BuildURL(rc RequestContext, ep Endpoint, params url.Values) string {
	q := cloneValues(params)
	if ep.CompanyParam != "" && rc.CompanyID != "" {
		q.Set(ep.CompanyParam, rc.CompanyID)
	}
	if ep.authStyle() == AuthQuery && rc.Token != "" {
		q.Set("access_token", rc.Token)
	}

	p := strings.Trim(strings.TrimSpace(ep.Path), "/")
	if path.Ext(p) == "" {
		p += ".json"
	}

	u := NormalizeBaseURL(rc.BaseURL) + "/" + p
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// redact hides credentials in a URL so it can be logged or shown.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

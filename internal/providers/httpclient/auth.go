package httpclient

import "net/http"

// Auth applies credentials to an outgoing request.
type Auth interface {
	Apply(req *http.Request)
}

// NoAuth leaves the request untouched.
type NoAuth struct{}

func (NoAuth) Apply(*http.Request) {}

// BearerToken sets the Authorization header. Scheme defaults to "Bearer".
type BearerToken struct {
	Token  string
	Scheme string
}

func (a BearerToken) Apply(req *http.Request) {
	if a.Token == "" {
		return
	}
	scheme := a.Scheme
	if scheme == "" {
		scheme = "Bearer"
	}
	req.Header.Set("Authorization", scheme+" "+a.Token)
}

// APIKey sets the key in a header (default X-API-Key).
type APIKey struct {
	Key    string
	Header string
}

func (a APIKey) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	header := a.Header
	if header == "" {
		header = "X-API-Key"
	}
	req.Header.Set(header, a.Key)
}

// RapidAPI authenticates against a RapidAPI-hosted endpoint.
type RapidAPI struct {
	Key  string
	Host string
}

func (a RapidAPI) Apply(req *http.Request) {
	if a.Key == "" {
		return
	}
	req.Header.Set("X-RapidAPI-Key", a.Key)
	if a.Host != "" {
		req.Header.Set("X-RapidAPI-Host", a.Host)
	}
}

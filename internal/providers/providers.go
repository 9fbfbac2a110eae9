// Package providers builds the configured candidate sources and reports their status.
package providers

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	logfields "github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/providers/github"
	"github.com/spigell/candidate-scout/internal/providers/linkedin"
	"github.com/spigell/candidate-scout/internal/providers/peopledata"
	"github.com/spigell/candidate-scout/internal/providers/resumes"
	"github.com/spigell/candidate-scout/internal/providers/scrape"
	"github.com/spigell/candidate-scout/internal/providers/tradeboard"
	"github.com/spigell/candidate-scout/internal/providers/xsearch"
	"github.com/spigell/candidate-scout/internal/secrets"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	EnvGitHubToken   = "GITHUB_TOKEN"
	EnvPeopleDataKey = "PEOPLEDATA_KEY"
	EnvRapidAPIKey   = "RAPIDAPI_KEY"
)

// Credential is an inline key or a file holding it.
type Credential struct {
	Key     string `mapstructure:"key"`
	KeyFile string `mapstructure:"key-file"`
}

// Source is the configuration shared by the API-backed providers.
type Source struct {
	// Enabled defaults to true when unset.
	Enabled    *bool  `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base-url"`
	Host       string `mapstructure:"host"`
	Credential `mapstructure:",squash"`
}

func (s Source) enabled() bool { return s.Enabled == nil || *s.Enabled }

type Config struct {
	// Timeout bounds a single HTTP request of every provider.
	Timeout    time.Duration   `mapstructure:"timeout"`
	GitHub     Source          `mapstructure:"github"`
	PeopleData Source          `mapstructure:"peopledata"`
	RapidAPI   Credential      `mapstructure:"rapidapi"`
	LinkedIn   Source          `mapstructure:"linkedin"`
	X          Source          `mapstructure:"x"`
	Indeed     Source          `mapstructure:"indeed"`
	JSearch    Source          `mapstructure:"jsearch"`
	Scrape     []scrape.Config `mapstructure:"scrape"`
}

// Status is runtime information about one source.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// Set is the result of Build: the providers in dispatch order and the status of
// every configured source, including disabled ones.
type Set struct {
	Providers []sourcing.Provider
	Statuses  []Status
}

// Describe returns the statuses.
func (s *Set) Describe() []Status { return s.Statuses }

func (s *Set) add(p sourcing.Provider, status Status) {
	status.Name = p.Name()
	status.Enabled = true
	s.Providers = append(s.Providers, p)
	s.Statuses = append(s.Statuses, status)
}

func (s *Set) disable(name, reason string) {
	s.Statuses = append(s.Statuses, Status{Name: name, Reason: reason})
}

// Build resolves credentials and constructs the enabled providers. A missing
// credential keeps the provider registered so it reports unauthenticated on
// every search. Only unreadable credential files are errors.
func Build(cfg Config, logger *zap.Logger) (*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := &Set{}

	rapidKey, err := secrets.Optional(secrets.Source{
		Name:  "rapidapi key",
		Value: cfg.RapidAPI.Key,
		File:  cfg.RapidAPI.KeyFile,
		Env:   EnvRapidAPIKey,
	})
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.enabled() {
		token, err := resolve("github token", cfg.GitHub.Credential, EnvGitHubToken)
		if err != nil {
			return nil, err
		}
		set.add(github.New(github.Config{
			Token:   token,
			BaseURL: cfg.GitHub.BaseURL,
			Timeout: cfg.Timeout,
		}, logger), credentialStatus(token, EnvGitHubToken))
	} else {
		set.disable(github.Name, "disabled in config")
	}

	if cfg.PeopleData.enabled() {
		key, err := resolve("peopledata api key", cfg.PeopleData.Credential, EnvPeopleDataKey)
		if err != nil {
			return nil, err
		}
		set.add(peopledata.New(peopledata.Config{
			APIKey:  key,
			BaseURL: cfg.PeopleData.BaseURL,
			Timeout: cfg.Timeout,
		}, logger), credentialStatus(key, EnvPeopleDataKey))
	} else {
		set.disable(peopledata.Name, "disabled in config")
	}

	rapid := []struct {
		name  string
		src   Source
		build func(src Source) sourcing.Provider
	}{
		{linkedin.Name, cfg.LinkedIn, func(src Source) sourcing.Provider {
			return linkedin.New(linkedin.Config{APIKey: rapidKey, Host: src.Host, BaseURL: src.BaseURL, Timeout: cfg.Timeout}, logger)
		}},
		{xsearch.Name, cfg.X, func(src Source) sourcing.Provider {
			return xsearch.New(xsearch.Config{APIKey: rapidKey, Host: src.Host, BaseURL: src.BaseURL, Timeout: cfg.Timeout}, logger)
		}},
		{resumes.Name, cfg.Indeed, func(src Source) sourcing.Provider {
			return resumes.New(resumes.Config{APIKey: rapidKey, Host: src.Host, BaseURL: src.BaseURL, Timeout: cfg.Timeout}, logger)
		}},
		{tradeboard.Name, cfg.JSearch, func(src Source) sourcing.Provider {
			return tradeboard.New(tradeboard.Config{APIKey: rapidKey, Host: src.Host, BaseURL: src.BaseURL, Timeout: cfg.Timeout}, logger)
		}},
	}
	for _, r := range rapid {
		if !r.src.enabled() {
			set.disable(r.name, "disabled in config")
			continue
		}
		status := credentialStatus(rapidKey, EnvRapidAPIKey)
		if r.src.Host != "" {
			status.Details = map[string]string{"host": r.src.Host}
		}
		set.add(r.build(r.src), status)
	}

	for i, sc := range cfg.Scrape {
		if sc.Timeout == 0 {
			sc.Timeout = cfg.Timeout
		}
		p := scrape.New(sc, logger)
		status := Status{Details: map[string]string{"url": sc.URL}}
		if sc.URL == "" || sc.Selectors.Card == "" {
			status.Reason = fmt.Sprintf("scrape[%d] needs url and selectors.card", i)
		}
		set.add(p, status)
	}

	for _, st := range set.Statuses {
		fields := append(logfields.SourceFields(st.Name), zap.Bool("enabled", st.Enabled))
		if st.Reason != "" {
			fields = append(fields, zap.String("reason", st.Reason))
		}
		logger.Debug("source configured", fields...)
	}

	return set, nil
}

func resolve(name string, cred Credential, env string) (string, error) {
	return secrets.Optional(secrets.Source{
		Name:  name,
		Value: cred.Key,
		File:  cred.KeyFile,
		Env:   env,
	})
}

func credentialStatus(secret, env string) Status {
	if secret != "" {
		return Status{}
	}
	return Status{Reason: fmt.Sprintf("credential not configured (set %s); searches will report unauthenticated", env)}
}

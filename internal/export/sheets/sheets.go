// Package sheets exports aggregated candidates to a Google Sheets tab.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

const DefaultTab = "Candidates"

// Header is the first row of every export.
var Header = []any{
	"Name", "Title", "Company", "Location", "Email", "Phone",
	"Skills", "Fit", "Source", "Profile URL", "Summary",
}

type Config struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	CredentialsJSON []byte `mapstructure:"-"`
	SpreadsheetID   string `mapstructure:"spreadsheet-id"`
	Tab             string `mapstructure:"tab"`
}

type values interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

type Exporter struct {
	values        values
	spreadsheetID string
	tab           string
	logger        *zap.Logger
}

// New builds an exporter authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Exporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	default:
		return nil, errors.New("sheets: credentials file or JSON is required")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return newExporter(serviceValues{service: service}, cfg, logger), nil
}

func newExporter(v values, cfg Config, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	tab := cfg.Tab
	if tab == "" {
		tab = DefaultTab
	}
	return &Exporter{values: v, spreadsheetID: cfg.SpreadsheetID, tab: tab, logger: logger}
}

// Export replaces the tab content with a header and one row per candidate.
// It returns the number of candidate rows written.
func (e *Exporter) Export(ctx context.Context, result sourcing.AggregatedResult) (int, error) {
	if err := e.values.Clear(ctx, e.spreadsheetID, e.tab); err != nil {
		return 0, fmt.Errorf("sheets: clear %q: %w", e.tab, err)
	}

	rows := Rows(result.Candidates)
	if err := e.values.Update(ctx, e.spreadsheetID, e.tab+"!A1", rows); err != nil {
		return 0, fmt.Errorf("sheets: write %q: %w", e.tab, err)
	}

	e.logger.Info("candidates exported",
		zap.String("spreadsheet_id", e.spreadsheetID),
		zap.String("tab", e.tab),
		zap.String("search_id", result.SearchID),
		zap.Int("rows", len(rows)-1),
	)
	return len(rows) - 1, nil
}

// Rows renders the header followed by the candidates in their ranked order.
func Rows(candidates []sourcing.CandidateProfile) [][]any {
	rows := make([][]any, 0, len(candidates)+1)
	rows = append(rows, Header)
	for _, c := range candidates {
		rows = append(rows, []any{
			c.Name,
			c.Title,
			c.Company,
			c.Location,
			c.Email,
			c.Phone,
			strings.Join(c.Skills, ", "),
			fmt.Sprintf("%.1f", c.EstimatedFit),
			c.Source,
			c.ProfileURL,
			c.Summary,
		})
	}
	return rows
}

type serviceValues struct {
	service *sheets.Service
}

func (s serviceValues) Clear(ctx context.Context, spreadsheetID, rng string) error {
	_, err := s.service.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := s.service.Spreadsheets.Values.Update(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/export/sheets"
	"github.com/spigell/candidate-scout/internal/importer"
	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/mcp"
	"github.com/spigell/candidate-scout/internal/secrets"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/store/neo4j"
	"github.com/spigell/candidate-scout/internal/store/postgres"
	"github.com/spigell/candidate-scout/internal/utils"
)

const (
	PromptImport  = "Import candidates to databases"
	PromptExport  = "Export candidates to Google Sheets"
	PromptDump    = "Dump candidates to file"
	PromptSources = "Show sources"
	PromptExit    = "Exit"

	envNeo4jPassword = "NEO4J_PASSWORD"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptImport, PromptExport, PromptDump, PromptSources, PromptExit},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search all configured sources for candidates",
	Run: func(cmd *cobra.Command, _ []string) {
		logger := newLogger()
		if err := search(cmd, logger); err != nil {
			logger.Fatal("search failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addSearchFlags(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("keywords", "k", "", "job title or keywords")
	cmd.Flags().StringP("location", "l", "", "city, region or country")
	cmd.Flags().StringSliceP("skills", "s", nil, "required skills, comma separated")
	cmd.Flags().String("level", "", "experience level: junior, mid, senior or executive")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of candidates (default from config)")
	cmd.Flags().StringP("query", "q", "", "free-text request, e.g. \"5 senior electricians in Tampa with OSHA 30\"")
	cmd.Flags().Bool("no-prompt", false, "print the result and exit")
	cmd.Flags().Bool("print-json", false, "print the result as JSON instead of a table")
}

// search returns instead of exiting so the state store is always flushed.
func search(cmd *cobra.Command, logger *zap.Logger) error {
	ctx := context.Background()

	rt, err := newScout(ctx, logger)
	if err != nil {
		return fmt.Errorf("preparing the search: %w", err)
	}
	defer rt.save()

	req, err := requestFromFlags(ctx, cmd, rt.parser, rt.state, rt.config.Search.Limit, logger)
	if err != nil {
		return fmt.Errorf("building the search request: %w", err)
	}

	logger.Info("starting the search",
		zap.String("keywords", req.Keywords),
		zap.String("location", req.Location),
		zap.Strings("skills", req.Skills),
		zap.Strings("sources", rt.aggregator.Sources()),
	)

	result, err := rt.aggregator.Aggregate(ctx, req)
	if err != nil {
		return err
	}

	logger.Info("search finished",
		zap.String("search_id", result.SearchID),
		zap.Int("candidates", len(result.Candidates)),
		zap.Int("total_found", result.TotalFound),
		zap.Strings("unavailable", result.Unavailable()),
	)

	if printJSON, _ := cmd.Flags().GetBool("print-json"); printJSON {
		pretty, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(pretty))
	} else {
		fmt.Println(renderTable(result))
	}

	if len(result.Candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates found"))
		return nil
	}
	if noPrompt, _ := cmd.Flags().GetBool("no-prompt"); noPrompt {
		return nil
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			return fmt.Errorf("prompt: %w", err)
		}

		if err := handleAction(ctx, action, rt, result); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}
			logger.Error("action failed", zap.String("action", action), zap.Error(err))
		}
	}
}

// requestFromFlags prefers --query and lets explicit flags override what was parsed.
// Query hints are logged for the final request, including trade tips and similar past searches.
func requestFromFlags(ctx context.Context, cmd *cobra.Command, parser intent.Parser, history mcp.History, defaultLimit int, logger *zap.Logger) (sourcing.SearchRequest, error) {
	flags := cmd.Flags()
	var req sourcing.SearchRequest

	query, _ := flags.GetString("query")
	if strings.TrimSpace(query) != "" {
		in, err := parser.Parse(ctx, query)
		if err != nil {
			return req, err
		}
		for _, s := range in.Suggestions {
			logger.Info("query hint", zap.String("hint", s))
		}
		req = in.Request()
	}

	if v, _ := flags.GetString("keywords"); v != "" {
		req.Keywords = v
	}
	if v, _ := flags.GetString("location"); v != "" {
		req.Location = v
	}
	if v, _ := flags.GetStringSlice("skills"); len(v) > 0 {
		req.Skills = v
	}
	if v, _ := flags.GetString("level"); v != "" {
		req.ExperienceLevel = sourcing.ParseLevel(v)
	}
	if v, _ := flags.GetInt("limit"); v > 0 {
		req.ResultLimit = v
	}
	if req.ResultLimit == 0 {
		req.ResultLimit = defaultLimit
	}
	if err := req.Validate(); err != nil {
		return req, err
	}

	text := utils.FirstNonEmpty(query, strings.Join(append([]string{req.Keywords}, req.Skills...), " "))
	for _, hint := range mcp.Hints(text, req, history) {
		logger.Info("query hint", zap.String("hint", hint))
	}
	return req, nil
}

func handleAction(ctx context.Context, action string, rt *scout, result sourcing.AggregatedResult) error {
	switch action {
	case PromptImport:
		return importCandidates(ctx, rt, result.Candidates)
	case PromptExport:
		exporter, err := sheets.New(ctx, rt.config.Export.Sheets, rt.logger)
		if err != nil {
			return err
		}
		_, err = exporter.Export(ctx, result)
		return err
	case PromptDump:
		filename, err := dumpToTmpFile(result)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		rt.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptSources:
		fmt.Println(renderSources(rt))
		return nil
	case PromptExit:
		rt.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func importCandidates(ctx context.Context, rt *scout, candidates []sourcing.CandidateProfile) error {
	cfg := rt.config.Import
	var sinks []importer.Sink

	if cfg.Postgres.DSN != "" {
		store, err := postgres.Open(ctx, cfg.Postgres, rt.logger)
		if err != nil {
			return err
		}
		defer store.Close()
		sinks = append(sinks, store)
	}

	if cfg.Neo4j.URI != "" {
		password, err := secrets.Optional(secrets.Source{
			Name:  "neo4j password",
			Value: cfg.Neo4j.Password,
			File:  cfg.Neo4j.PasswordFile,
			Env:   envNeo4jPassword,
		})
		if err != nil {
			return err
		}
		graphCfg := cfg.Neo4j.Config
		graphCfg.Password = password

		store, err := neo4j.Open(ctx, graphCfg, rt.logger)
		if err != nil {
			return err
		}
		defer store.Close(ctx)
		sinks = append(sinks, store)
	}

	if len(sinks) == 0 {
		return errors.New("no import sinks configured (set import.postgres.dsn or import.neo4j.uri)")
	}

	reports, err := importer.New(rt.logger, sinks...).Import(ctx, candidates)
	for _, r := range reports {
		for _, e := range r.Errors {
			rt.logger.Warn("candidate not imported", zap.String("sink", r.Sink), zap.String("error", e))
		}
	}
	return err
}

func dumpToTmpFile(result sourcing.AggregatedResult) (string, error) {
	file, err := os.CreateTemp("", app+"-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return "", err
	}
	return file.Name(), nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

const cellRunes = 40

func renderTable(result sourcing.AggregatedResult) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "Fit", "Name", "Title", "Location", "Source", "Skills", "Profile")

	for i, c := range result.Candidates {
		t.Row(
			strconv.Itoa(i+1),
			fmt.Sprintf("%.1f", c.EstimatedFit),
			utils.FirstNonEmpty(c.Name, "-"),
			utils.TruncateRunes(utils.FirstNonEmpty(c.Title, "-"), cellRunes),
			utils.FirstNonEmpty(c.Location, "-"),
			c.Source,
			utils.TruncateRunes(strings.Join(c.Skills, ", "), cellRunes),
			utils.FirstNonEmpty(c.ProfileURL, c.Email, "-"),
		)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d candidates (found %d)", len(result.Candidates), result.TotalFound)))
	if result.Cached {
		b.WriteString(mutedStyle.Render(" cached"))
	}
	b.WriteString("\n")
	b.WriteString(t.String())
	if unavailable := result.Unavailable(); len(unavailable) > 0 {
		b.WriteString("\n")
		parts := make([]string, 0, len(unavailable))
		for _, name := range unavailable {
			parts = append(parts, fmt.Sprintf("%s (%s)", name, result.Failures[name]))
		}
		b.WriteString(warnStyle.Render("unavailable: " + strings.Join(parts, ", ")))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("search id " + result.SearchID))
	return b.String()
}

func renderSources(rt *scout) string {
	stats := rt.state.Snapshot().Sources
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Source", "Enabled", "Queried", "Success", "Note")

	for _, st := range rt.sources.Describe() {
		s := stats[st.Name]
		t.Row(
			st.Name,
			strconv.FormatBool(st.Enabled),
			strconv.Itoa(s.Queried),
			fmt.Sprintf("%.0f%%", s.SuccessRate()*100),
			utils.FirstNonEmpty(st.Reason, s.LastFailure),
		)
	}
	return t.String()
}

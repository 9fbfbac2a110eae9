package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/mcp"
)

var parseCmd = &cobra.Command{
	Use:   "parse [query]",
	Short: "Show how a free-text request is turned into a search request",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger()

		rt, err := newScout(ctx, logger)
		if err != nil {
			logger.Fatal("preparing the parser", zap.Error(err))
		}

		query := strings.Join(args, " ")
		in, err := rt.parser.Parse(ctx, query)
		if err != nil {
			logger.Fatal("parsing the query", zap.Error(err))
		}

		req := in.Request()
		pretty, _ := json.MarshalIndent(mcp.ParseResult{
			Request: req,
			Intent:  in,
			Hints:   mcp.Hints(query, req, rt.state),
		}, "", "  ")
		fmt.Println(string(pretty))
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

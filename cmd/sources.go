package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources with their status and past success rate",
	Run: func(_ *cobra.Command, _ []string) {
		logger := newLogger()

		rt, err := newScout(context.Background(), logger)
		if err != nil {
			logger.Fatal("preparing sources", zap.Error(err))
		}
		fmt.Println(renderSources(rt))
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

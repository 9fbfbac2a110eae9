package cmd

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/mcp"
	"github.com/spigell/candidate-scout/internal/shutdown"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose candidate search as an MCP server over streamable HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "time allowed for in-flight requests on shutdown")
}

func serve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := newLogger()

	rt, err := newScout(ctx, logger)
	if err != nil {
		logger.Fatal("preparing the server", zap.Error(err))
	}
	defer rt.save()

	timeout, _ := serveCmd.Flags().GetDuration("shutdown-timeout")
	srv := mcp.NewServer(logger, rt.config.Serve, mcp.Deps{
		Searcher: rt.aggregator,
		Parser:   rt.parser,
		History:  rt.state,
		Version:  version,
	})

	go shutdown.Graceful(ctx,
		[]os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP},
		srv,
		timeout,
		logger,
	)

	logger.Info("starting the mcp server", zap.String("version", version), zap.String("addr", srv.Addr()))

	if err := srv.Run(); err != nil {
		logger.Error("mcp server exited with error", zap.Error(err))
		return
	}
	logger.Info("mcp server stopped")
}

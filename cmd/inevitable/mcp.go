package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"inevitablewiki/internal/mcp"
	"inevitablewiki/internal/relations"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the content engine as MCP tools over stdio or HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()

		s := mcp.NewServer(repo, relations.NewResolver(repo, relations.WithLogger(logger)))

		if mcpHTTPAddr != "" {
			logger.Info("starting MCP server", zap.String("addr", mcpHTTPAddr))
			return server.NewStreamableHTTPServer(s).Start(mcpHTTPAddr)
		}
		// stdout carries the protocol; logs go to stderr.
		return server.ServeStdio(s)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "HTTP address (e.g. ':8081'); stdio when empty")
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/examcore/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve examcore tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := setup(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		return mcpserver.NewServer(d.svc, version).Run()
	},
}

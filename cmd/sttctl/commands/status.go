package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a backend's health and status fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cfg, err := loadBackend()
		if err != nil {
			return err
		}

		fields := backend.Status()
		fmt.Print(renderFields(cfg.BackendType+" status", fields))
		return nil
	},
}

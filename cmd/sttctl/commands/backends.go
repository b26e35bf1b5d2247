package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/stt"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered backend types",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range stt.AvailableBackends() {
			fmt.Println(name)
		}
		return nil
	},
}

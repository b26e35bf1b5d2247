package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "Show a backend's capability matrix",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, cfg, err := loadBackend()
		if err != nil {
			return err
		}

		caps := backend.Capabilities()
		encodings := make([]string, len(caps.SupportedEncodings))
		for i, e := range caps.SupportedEncodings {
			encodings[i] = string(e)
		}

		fmt.Printf("%s capabilities\n", cfg.BackendType)
		fmt.Print(renderBool("streaming", caps.SupportsStreaming))
		fmt.Print(renderBool("wordTimings", caps.SupportsWordTimings))
		fmt.Print(renderBool("speakerLabels", caps.SupportsSpeakerLabels))
		fmt.Print(renderBool("customModels", caps.SupportsCustomModels))
		fmt.Print(renderList("languages", caps.SupportedLanguages))
		fmt.Print(renderList("encodings", encodings))
		fmt.Printf("sampleRate:       %d-%d Hz, max %d channel(s)\n", caps.MinSampleRate, caps.MaxSampleRate, caps.MaxChannels)
		if len(caps.Features) > 0 {
			fmt.Print(renderFields("features", caps.Features))
		}
		return nil
	},
}

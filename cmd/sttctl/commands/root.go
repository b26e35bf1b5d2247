package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/onnxrt"
	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/stt"
)

var (
	cfgFile string
	verbose bool

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sttctl",
	Short: "FastConformer-CTC streaming speech-to-text demo harness",
	Long: `sttctl drives the engine's Backend interface from the command
line: transcribe a raw PCM file, inspect a backend's capabilities and
status, or resolve a model bundle from a local model store.

A backend is selected by a YAML config file (-c/--config):

  backend_type: fastconformer
  parameters:
    modelPath: /models/fastconformer/model.onnx
    vocabPath: /models/fastconformer/tokens.txt
    cmvnFile: /models/fastconformer/global_cmvn.stats
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging, registerBackends)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "backend config YAML file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logging")

	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(capabilitiesCmd)
	rootCmd.AddCommand(resolveCmd)
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// registerBackends registers the fastconformer factory against whatever
// inference runtime this build was linked against. The watson
// placeholder backend self-registers from pkg/stt's init(); it never
// needs an onnxrt.Env.
func registerBackends() {
	env, err := onnxrt.NewDefaultEnv("sttctl")
	if err != nil {
		logger.Warn("fastconformer backend unavailable", "error", err)
		return
	}
	stt.RegisterFastConformer(env, logger)
}

// loadBackend reads the config at cfgFile and constructs+initializes
// the backend it names.
func loadBackend() (stt.Backend, stt.Config, error) {
	if cfgFile == "" {
		return nil, stt.Config{}, fmt.Errorf("no config file given (-c/--config)")
	}
	cfg, err := stt.LoadConfigFile(cfgFile)
	if err != nil {
		return nil, stt.Config{}, err
	}
	backend, err := stt.Create(cfg.BackendType, cfg)
	if err != nil {
		return nil, stt.Config{}, err
	}
	return backend, cfg, nil
}

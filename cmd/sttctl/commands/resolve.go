package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jms90h5/com.teracloud.streamsx.stt/pkg/modelstore"
)

var (
	resolveRemoteDir string
	resolveCacheDir  string
	resolveBundle    string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a named model bundle from a local model store into a local cache",
	Long: `Exercises pkg/modelstore directly, independent of any backend:
fetches model.onnx/tokens.txt/global_cmvn.stats for --bundle out of
--remote-dir into --cache-dir (skipping files already cached), and
prints the resulting local paths. Point modelPath/vocabPath/cmvnFile in
a backend config at these paths once resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveRemoteDir == "" || resolveBundle == "" {
			return fmt.Errorf("both --remote-dir and --bundle are required")
		}

		remote, err := modelstore.NewLocal(resolveRemoteDir)
		if err != nil {
			return fmt.Errorf("open remote store: %w", err)
		}
		mgr, err := modelstore.NewManager(remote, resolveCacheDir)
		if err != nil {
			return fmt.Errorf("open cache manager: %w", err)
		}
		defer mgr.Close()

		bundle, err := mgr.Resolve(context.Background(), resolveBundle)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", resolveBundle, err)
		}

		fmt.Print(renderFields(resolveBundle+" bundle", map[string]string{
			"modelPath": bundle.ModelPath,
			"vocabPath": bundle.VocabPath,
			"cmvnPath":  cmvnDisplay(bundle.CmvnPath),
		}))
		return nil
	},
}

func cmvnDisplay(path string) string {
	if path == "" {
		return "(none)"
	}
	return path
}

func init() {
	resolveCmd.Flags().StringVar(&resolveRemoteDir, "remote-dir", "", "local directory standing in for the remote model store")
	resolveCmd.Flags().StringVar(&resolveCacheDir, "cache-dir", "./model-cache", "local cache directory for resolved bundles")
	resolveCmd.Flags().StringVar(&resolveBundle, "bundle", "", "bundle name (a subdirectory of --remote-dir)")
}

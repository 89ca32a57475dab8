package cli

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"github.com/modelyard/modelyard/pkg/global"
	"github.com/modelyard/modelyard/pkg/manager"
	"github.com/modelyard/modelyard/pkg/util/console"
)

var modelFlag string
var modelsDirFlag string
var cacheDirFlag string
var maxCacheSizeFlag float64

func NewRootCommand() (*cobra.Command, error) {
	rootCmd := cobra.Command{
		Use:     "modelyard",
		Short:   "Download, verify and serve local model artifacts",
		Version: fmt.Sprintf("%s (built %s)", global.Version, global.BuildTime),
		// This stops errors being printed because we print them in cmd/modelyard/main.go
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.Verbose {
				console.SetLevel(console.DebugLevel)
			}
			console.SetColor(console.IsTTY(os.Stderr))
			cmd.SilenceUsage = true
		},
		SilenceErrors: true,
	}
	setPersistentFlags(&rootCmd)

	rootCmd.AddCommand(
		newEnsureCommand(),
		newDownloadCommand(),
		newVerifyCommand(),
		newListCommand(),
		newInfoCommand(),
		newServeCommand(),
	)

	return &rootCmd, nil
}

func setPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().StringVar(&modelsDirFlag, "models-dir", global.DefaultModelsDir, "Directory where model files are stored")
	cmd.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", global.DefaultCacheDir, "Directory for the loaded-model cache index")
	cmd.PersistentFlags().Float64Var(&maxCacheSizeFlag, "max-cache-size", global.DefaultMaxCacheGB, "Maximum size of the loaded-model cache, in GB")
}

func addModelFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "Model name, e.g. tinyllama")
}

// getModel resolves --model, falling back to the default model.
func getModel() string {
	if modelFlag != "" {
		return modelFlag
	}
	return global.DefaultModel
}

func newManager() (*manager.Manager, error) {
	modelsDir, err := homedir.Expand(modelsDirFlag)
	if err != nil {
		return nil, err
	}
	cacheDir, err := homedir.Expand(cacheDirFlag)
	if err != nil {
		return nil, err
	}
	return manager.New(manager.Options{
		ModelsDir:     modelsDir,
		CacheDir:      cacheDir,
		MaxCacheBytes: int64(maxCacheSizeFlag * 1024 * 1024 * 1024),
	})
}

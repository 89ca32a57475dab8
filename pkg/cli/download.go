package cli

import (
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
)

var downloadForce bool

func newDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a model",
		RunE:  downloadModel,
		Args:  cobra.NoArgs,
	}
	addModelFlag(cmd)
	cmd.Flags().BoolVarP(&downloadForce, "force", "f", false, "Re-download even if the model is already valid")
	return cmd
}

func downloadModel(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	progress := mpb.NewWithContext(cmd.Context())
	err = m.Download(cmd.Context(), getModel(), downloadForce, progress)
	progress.Wait()
	return err
}

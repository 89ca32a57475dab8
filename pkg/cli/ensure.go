package cli

import (
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/modelyard/modelyard/pkg/util/console"
)

func newEnsureCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Download and verify all required models",
		RunE:  ensureModels,
		Args:  cobra.NoArgs,
	}
	return cmd
}

func ensureModels(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	progress := mpb.NewWithContext(cmd.Context())
	if err := m.EnsureRequired(cmd.Context(), progress); err != nil {
		progress.Wait()
		return err
	}
	progress.Wait()

	console.Infof("All required models are ready")
	return nil
}

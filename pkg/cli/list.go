package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/modelyard/modelyard/pkg/util/console"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List registered models",
		RunE:    listModels,
		Args:    cobra.NoArgs,
		Aliases: []string{"ls"},
	}
	cmd.Flags().BoolP("quiet", "q", false, "Quiet output, only display names")
	return cmd
}

func listModels(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}

	infos, err := m.List()
	if err != nil {
		return err
	}

	if quiet {
		for _, info := range infos {
			fmt.Println(info.Name)
		}
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tSIZE\tREQUIRED\tSTATUS")
	for _, info := range infos {
		status := "missing"
		if info.Downloaded {
			status = "downloaded"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", info.Name, info.Version, formatSize(info.Size), info.Required, status)
	}
	w.Flush()

	if updated, ok := m.LastUpdated(); ok {
		fmt.Printf("\nManifest last updated %s\n", console.FormatTime(updated))
	}
	return nil
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

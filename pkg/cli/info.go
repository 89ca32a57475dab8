package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show details for a model",
		RunE:  showInfo,
		Args:  cobra.NoArgs,
	}
	addModelFlag(cmd)
	return cmd
}

func showInfo(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	info, err := m.Info(getModel())
	if err != nil {
		return err
	}

	hash := "(unknown)"
	if info.SHA256 != nil {
		hash = *info.SHA256
	}
	status := "missing"
	if info.Downloaded {
		status = "downloaded"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	fmt.Fprintf(w, "Version:\t%s\n", info.Version)
	fmt.Fprintf(w, "Type:\t%s\n", info.ModelType)
	fmt.Fprintf(w, "Description:\t%s\n", info.Description)
	fmt.Fprintf(w, "URL:\t%s\n", info.URL)
	fmt.Fprintf(w, "Expected size:\t%s\n", formatSize(info.Size))
	if info.ActualSize > 0 {
		fmt.Fprintf(w, "Size on disk:\t%s\n", formatSize(info.ActualSize))
	}
	fmt.Fprintf(w, "Required:\t%t\n", info.Required)
	fmt.Fprintf(w, "SHA256:\t%s\n", hash)
	fmt.Fprintf(w, "Status:\t%s\n", status)
	return w.Flush()
}

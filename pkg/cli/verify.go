package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modelyard/modelyard/pkg/util/console"
)

func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify downloaded models against their recorded hashes",
		RunE:  verifyModels,
		Args:  cobra.NoArgs,
	}
	addModelFlag(cmd)
	return cmd
}

func verifyModels(cmd *cobra.Command, args []string) error {
	m, err := newManager()
	if err != nil {
		return err
	}
	defer m.Close()

	// no --model means all registered models
	names := []string{modelFlag}
	if modelFlag == "" {
		names = m.Names()
	}

	var invalid []string
	for _, name := range names {
		ok, err := m.Verify(name)
		if err != nil {
			return err
		}
		if ok {
			console.Infof("%s: valid", name)
		} else {
			console.Warnf("%s: missing or invalid", name)
			invalid = append(invalid, name)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("verification failed for: %s", strings.Join(invalid, ", "))
	}
	return nil
}

package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/modelyard/modelyard/pkg/device"
	"github.com/modelyard/modelyard/pkg/logging"
	"github.com/modelyard/modelyard/pkg/server"
	"github.com/modelyard/modelyard/pkg/util/console"
)

var serveHost string
var servePort int

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP",
		RunE:  serve,
		Args:  cobra.NoArgs,
	}
	addModelFlag(cmd)
	cmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to")
	cmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to listen on")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
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

	model := getModel()
	opts := device.DefaultOptions()

	// Fail at start-up rather than on the first request.
	if _, err := m.Load(cmd.Context(), model, opts); err != nil {
		return err
	}

	logger := logging.New("modelyard")
	defer func() { _ = logger.Sync() }()

	gen := &server.ManagerGenerator{Manager: m, Model: model, Options: opts}
	handler := server.NewHandler(gen, model, logger)
	mux := server.CORS{}.Wrap(server.NewServeMux(handler))

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	console.Infof("Serving %s on http://%s", model, addr)
	return http.ListenAndServe(addr, mux)
}

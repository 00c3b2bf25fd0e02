package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/printomat/internal/api"
	"github.com/matzehuels/printomat/pkg/buildinfo"
	"github.com/matzehuels/printomat/pkg/config"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/pipeline"
	"github.com/matzehuels/printomat/pkg/preview"
	"github.com/matzehuels/printomat/pkg/session"
	"github.com/matzehuels/printomat/pkg/versioning"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		root    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session API for the kiosk front end",
		Long: `Run the local HTTP API that drives upload sessions.

A session opens the upload directory named by its code under the upload root,
ingests every file in it and keeps one document editable at a time. Closing
a session records its print jobs in the job directory.`,
		Example: `  printomat serve --addr 127.0.0.1:8631 --root /srv/uploads`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if root != "" {
				cfg.Uploads.Root = root
			}
			manager, closeFn, err := c.newManager(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer closeFn()
			observability.NewLogHooks(c.Logger).Install()

			fmt.Fprintln(stdout, StyleTitle.Render(appName)+" "+StyleDim.Render(buildinfo.Version))
			printInfo("Serving uploads from %s", cfg.Uploads.Root)
			printKeyValue("Address", "http://"+cfg.Server.Addr)
			printKeyValue("Jobs", cfg.Uploads.JobDir)
			return api.New(manager, c.Logger).ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&root, "root", "", "upload root directory (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

// newManager wires a session manager from cfg. The returned func releases
// the preview cache.
func (c *CLI) newManager(ctx context.Context, cfg config.Config, noCache bool) (*session.Manager, func(), error) {
	if err := os.MkdirAll(cfg.Uploads.Root, 0o755); err != nil {
		return nil, nil, err
	}
	backend, err := pipeline.NewBackend(cfg.Paper.Backend)
	if err != nil {
		return nil, nil, err
	}
	store, err := session.NewFileStore(cfg.Uploads.JobDir)
	if err != nil {
		return nil, nil, err
	}
	cc, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, nil, err
	}

	renderer := preview.NewRenderer(nil, cc, nil, c.Logger)
	renderer.TTL = cfg.Preview.TTL.Duration
	writer := versioning.NewWriter(c.Logger)
	manager := session.NewManager(cfg.Uploads.Root, session.Config{
		Normalizer: ingest.New(ingest.Options{
			Paper:   cfg.PaperSize(),
			Margin:  cfg.Paper.Margin,
			Backend: backend,
			Writer:  writer,
			Workers: cfg.Uploads.Workers,
			Logger:  c.Logger,
		}),
		Writer:   writer,
		Renderer: renderer,
		TTL:      cfg.Uploads.SessionTTL.Duration,
		Logger:   c.Logger,
	}, store)

	return manager, func() { _ = cc.Close() }, nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/pagedoc"
	"github.com/matzehuels/printomat/pkg/pipeline"
	"github.com/matzehuels/printomat/pkg/preview"
)

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		output  string
		req     preview.Request
		backend string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Render one page of a document as PNG",
		Long: `Render one page of a document as PNG.

Source files (PDFs and images) are normalized in memory first; nothing is
written next to them. Version files such as report.2 are rendered as saved.`,
		Example: `  printomat preview report.2 -o report.png
  printomat preview scan.jpg --page 0 --width 300 --grayscale`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if backend == "" {
				backend = cfg.Paper.Backend
			}
			b, err := pipeline.NewBackend(backend)
			if err != nil {
				return err
			}

			doc, err := openForPreview(args[0], ingest.New(ingest.Options{
				Paper:   cfg.PaperSize(),
				Margin:  cfg.Paper.Margin,
				Backend: b,
				Logger:  c.Logger,
			}))
			if err != nil {
				return err
			}

			cc, err := newCache(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer cc.Close()

			r := preview.NewRenderer(nil, cc, nil, c.Logger)
			r.TTL = cfg.Preview.TTL.Duration
			if req.Width <= 0 {
				req.Width = cfg.Preview.Width
			}
			if req.Height <= 0 {
				req.Height = cfg.Preview.Height
			}
			spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering page %d...", req.Page))
			spinner.Start()
			png, err := r.RenderPNG(ctx, doc, req)
			if err != nil {
				spinner.StopWithError(errors.UserMessage(err))
				return err
			}

			if output == "" {
				output = previewPath(args[0], req.Page)
			}
			if err := os.WriteFile(output, png, 0o644); err != nil {
				spinner.Stop()
				return fmt.Errorf("write preview: %w", err)
			}
			spinner.StopWithSuccess(fmt.Sprintf("Rendered page %d of %d", req.Page+1, doc.PageCount()))
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <file>.p<page>.png)")
	cmd.Flags().IntVarP(&req.Page, "page", "p", 0, "zero-based page index")
	cmd.Flags().IntVar(&req.Width, "width", 0, "maximum preview width in pixels (default from config)")
	cmd.Flags().IntVar(&req.Height, "height", 0, "maximum preview height in pixels (default from config)")
	cmd.Flags().BoolVar(&req.Grayscale, "grayscale", false, "render in grayscale")
	cmd.Flags().StringVar(&backend, "backend", "", "document backend: pdf, memory (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the preview cache")

	return cmd
}

// openForPreview normalizes source files and opens version files as they
// are.
func openForPreview(path string, n *ingest.Normalizer) (*pagedoc.Document, error) {
	if ingest.IsSupported(path) {
		return n.NormalizeFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnreadableSource, err, "read %s", path)
	}
	return pagedoc.Open(n.Options().Backend, data)
}

// previewPath names the default output: report.pdf and report.2 render to
// report.p0.png and report.2.p0.png.
func previewPath(path string, page int) string {
	if ingest.IsSupported(path) {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}
	return fmt.Sprintf("%s.p%d.png", path, page)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/printomat/pkg/errors"
	"github.com/matzehuels/printomat/pkg/ingest"
	"github.com/matzehuels/printomat/pkg/observability"
	"github.com/matzehuels/printomat/pkg/pipeline"
)

// batchFlags holds the flags shared by normalize and impose.
type batchFlags struct {
	paper       string
	backend     string
	orientation string
	layout      int
	copies      int
	color       string
	duplex      string
	preview     bool
	noCache     bool
}

func (f *batchFlags) register(cmd *cobra.Command, withLayout bool) {
	cmd.Flags().StringVar(&f.paper, "paper", "", "paper size: A4, Letter, A5 (default from config)")
	cmd.Flags().StringVar(&f.backend, "backend", "", "document backend: pdf, memory (default from config)")
	cmd.Flags().StringVarP(&f.orientation, "orientation", "r", "", "rotate to portrait or landscape")
	if withLayout {
		cmd.Flags().IntVarP(&f.layout, "layout", "n", 2, "pages per sheet: 1, 2, 4")
	}
	cmd.Flags().IntVar(&f.copies, "copies", 0, "copies to record for each file (1-99)")
	cmd.Flags().StringVar(&f.color, "color", "", "color mode: color, grayscale")
	cmd.Flags().StringVar(&f.duplex, "duplex", "", "duplex mode: one-sided, two-sided-long, two-sided-short")
	cmd.Flags().BoolVar(&f.preview, "preview", false, "write a PNG preview of the first page next to each output")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the preview cache")
}

// normalizeCommand creates the normalize command.
func (c *CLI) normalizeCommand() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "normalize [files or dirs...]",
		Short: "Normalize files onto the configured paper size",
		Long: `Normalize PDFs and images onto the configured paper size.

Every file is written next to its source as <stem>.1. With --orientation the
result is rotated and saved as the next version. Directories expand to the
supported files they contain.`,
		Example: `  printomat normalize uploads/4821
  printomat normalize scan.jpg report.pdf --orientation landscape`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd.Context(), args, flags)
		},
	}

	flags.register(cmd, false)
	return cmd
}

// imposeCommand creates the impose command.
func (c *CLI) imposeCommand() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "impose [files or dirs...]",
		Short: "Place several pages on each sheet",
		Long: `Normalize files and impose them 2-up or 4-up.

The imposed document is saved as the next version after the normalized one,
so report.pdf yields report.1 and report.2.`,
		Example: `  printomat impose slides.pdf
  printomat impose slides.pdf -n 4 --copies 20 --duplex two-sided-long`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBatch(cmd.Context(), args, flags)
		},
	}

	flags.register(cmd, true)
	return cmd
}

// runBatch expands args, runs the pipeline once per directory and prints a
// line per file. It fails when any file failed.
func (c *CLI) runBatch(ctx context.Context, args []string, flags batchFlags) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New(errors.ErrCodeNotFound, "no supported files in %s", strings.Join(args, ", "))
	}

	opts := pipelineOptions(cfg, c.Logger)
	if flags.paper != "" {
		opts.Paper = flags.paper
	}
	if flags.backend != "" {
		opts.Backend = flags.backend
	}
	opts.Orientation = flags.orientation
	opts.Layout = flags.layout
	opts.Copies = flags.copies
	opts.Color = flags.color
	opts.Duplex = flags.duplex
	opts.Preview = flags.preview
	if flags.orientation != "" && flags.layout > 1 {
		printWarning("--orientation is ignored when imposing %d-up", flags.layout)
	}

	runner, err := c.newRunner(ctx, cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	var total pipeline.Stats
	dirs, groups := groupByDir(paths)
	prevHooks := observability.Document()
	defer observability.SetDocumentHooks(prevHooks)
	for _, dir := range dirs {
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Ingesting %s from %s...", pluralize(len(groups[dir]), "file"), dir))
		observability.SetDocumentHooks(newIngestProgress(spinner, len(groups[dir])))
		spinner.Start()
		result, err := runner.Execute(ctx, dir, groups[dir], opts)
		if err != nil {
			spinner.StopWithError(errors.UserMessage(err))
			return err
		}
		spinner.Stop()
		for _, fr := range result.Files {
			printResult(fr)
			if fr.Err == nil && fr.Preview != nil {
				out := fr.Output + ".png"
				if err := os.WriteFile(out, fr.Preview, 0o644); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
				printFile(out)
			}
		}
		addStats(&total, result.Stats)
	}

	printStats(total)
	prog.done("Processed " + pluralize(total.Files, "file"))
	if total.Failed > 0 {
		return fmt.Errorf("%s failed", pluralize(total.Failed, "file"))
	}
	if total.Saved > 0 && !opts.Preview {
		printNewline()
		printNextStep("Preview a result", appName+" preview <file>.<version>")
	}
	return nil
}

// expandArgs replaces directory arguments with the supported files inside
// them. File arguments are kept as given.
func expandArgs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		names, err := ingest.ListSources(arg)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	return paths, nil
}

func printResult(fr pipeline.FileResult) {
	if fr.Err != nil {
		printError("%s: %s", fr.Name, errors.UserMessage(fr.Err))
		return
	}
	printSuccess("%s %s %s", fr.Name, StyleDim.Render(iconArrow), StyleHighlight.Render(filepath.Base(fr.Output)))
	printDetail("%s · %d copies · %s · %s", pluralize(fr.Pages, "page"), fr.Options.Copies, fr.Options.Color, fr.Options.Duplex)
}

func addStats(dst *pipeline.Stats, s pipeline.Stats) {
	dst.Files += s.Files
	dst.Failed += s.Failed
	dst.Saved += s.Saved
	dst.Pages += s.Pages
	dst.IngestTime += s.IngestTime
	dst.TransformTime += s.TransformTime
	dst.SaveTime += s.SaveTime
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/pkg/api"
)

type paginateFlags struct {
	output      string
	json        bool
	fragment    bool
	title       string
	pageSize    string
	orientation string
	backend     string
	noNumbers   bool
}

func newPaginateCommand(global *globalFlags) *cobra.Command {
	flags := &paginateFlags{}
	cmd := &cobra.Command{
		Use:   "paginate <input.html|url>",
		Short: "Paginate a document and write the preview",
		Long: `Paginate reads an HTML file or URL, splits it into pages and writes the
rendered preview. With --json it prints the page boundaries instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPaginate(cmd.Context(), cmd.OutOrStdout(), global, flags, args[0])
		},
	}
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default <input>.preview.html, - for stdout)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print page boundaries as JSON")
	cmd.Flags().BoolVar(&flags.fragment, "fragment", false, "write the pages without a document wrapper")
	cmd.Flags().StringVar(&flags.title, "title", "", "document title")
	cmd.Flags().StringVar(&flags.pageSize, "page-size", "", "page size override (A3, A4, Letter, Legal, Folio)")
	cmd.Flags().StringVar(&flags.orientation, "orientation", "", "orientation override")
	cmd.Flags().StringVar(&flags.backend, "backend", "", "measurement backend override (metrics, browser)")
	cmd.Flags().BoolVar(&flags.noNumbers, "no-numbers", false, "disable page numbers")
	return cmd
}

func runPaginate(ctx context.Context, stdout io.Writer, global *globalFlags, flags *paginateFlags, input string) error {
	cfg, logger, err := global.load()
	if err != nil {
		return err
	}
	if flags.pageSize != "" {
		cfg.Page.Size = flags.pageSize
	}
	if flags.orientation != "" {
		cfg.Page.Orientation = flags.orientation
	}
	if flags.backend != "" {
		cfg.Measure.Backend = flags.backend
	}
	if flags.noNumbers {
		cfg.Numbering.Enabled = false
	}

	options, err := global.options(cfg, logger)
	if err != nil {
		return err
	}
	p, err := api.NewWithOptions(options)
	if err != nil {
		return err
	}
	defer p.Close()

	var result *api.Result
	if isURL(input) {
		result, err = p.PaginateURL(ctx, input)
	} else {
		result, err = p.PaginateFile(ctx, input)
	}
	if err != nil {
		return err
	}
	logger.Info().
		Str("input", input).
		Str("backend", result.Backend).
		Int("pages", len(result.Pages)).
		Dur("elapsed", result.Elapsed).
		Msg("paginated")

	if flags.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(newReport(input, result))
	}

	out := flags.output
	if out == "" {
		out = previewPath(input)
	}
	var w io.Writer = stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if flags.fragment {
		err = p.Render(ctx, w, result)
	} else {
		title := flags.title
		if title == "" {
			title = filepath.Base(input)
		}
		err = p.RenderDocument(ctx, w, result, title)
	}
	if err != nil {
		return err
	}
	if out != "-" {
		logger.Info().Str("output", out).Msg("preview written")
	}
	return nil
}

type report struct {
	Input    string            `json:"input"`
	ID       string            `json:"id"`
	Backend  string            `json:"backend"`
	Geometry geometry.Geometry `json:"geometry"`
	Pages    []api.PageSummary `json:"pages"`
}

func newReport(input string, r *api.Result) report {
	return report{Input: input, ID: r.ID, Backend: r.Backend, Geometry: r.Geometry, Pages: r.Summary()}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// previewPath derives the output name from the input, in the working
// directory for URLs.
func previewPath(input string) string {
	if isURL(input) {
		return "preview.html"
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".preview.html"
}

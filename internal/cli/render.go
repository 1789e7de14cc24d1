package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/petrisync/pkg/model"
	"github.com/matzehuels/petrisync/pkg/render"
	"github.com/matzehuels/petrisync/pkg/render/dot"
	"github.com/matzehuels/petrisync/pkg/render/raster"
	"github.com/matzehuels/petrisync/pkg/store"
)

// Output formats.
const (
	formatSVG   = "svg"   // native SVG of the editor frame
	formatDOT   = "dot"   // Graphviz source
	formatNeato = "neato" // SVG rendered by Graphviz from the DOT source
	formatPNG   = "png"   // raster image
	formatJSON  = "json"  // the frame itself
)

// formatExt maps formats to file suffixes.
var formatExt = map[string]string{
	formatSVG:   ".svg",
	formatDOT:   ".dot",
	formatNeato: ".neato.svg",
	formatPNG:   ".png",
	formatJSON:  ".json",
}

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	formats  []string
	ticks    int
	restore  bool
	save     bool
	fixed    bool // use the configured canvas size instead of fitting
	scale    float64
	detailed bool
}

func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	opts := renderOpts{ticks: defaultSettleTicks, restore: true, scale: 1}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Lay out a model document and export the diagram",
		Long: `Render loads a model document, restores its saved layout if there is one,
runs the force layout until it settles and writes the diagram in one or
more formats: svg, dot, neato, png, json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, neato, png, json (comma-separated)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", opts.ticks, "maximum layout steps")
	cmd.Flags().BoolVar(&opts.restore, "restore", opts.restore, "start from the saved snapshot")
	cmd.Flags().BoolVar(&opts.save, "save", false, "save the settled layout as a snapshot")
	cmd.Flags().BoolVar(&opts.fixed, "fixed", false, "use the configured canvas size")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "add ids and pin state to DOT labels")

	return cmd
}

func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if _, ok := formatExt[f]; !ok {
			return fmt.Errorf("invalid format: %s (must be svg, dot, neato, png or json)", f)
		}
	}
	return nil
}

// basePath strips a known format suffix from output, or derives the base
// from the input file.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	for _, ext := range formatExt {
		if strings.HasSuffix(output, ext) {
			return strings.TrimSuffix(output, ext)
		}
	}
	return output
}

func outputPath(opts *renderOpts, input, format string) string {
	if len(opts.formats) == 1 && opts.output != "" {
		return opts.output
	}
	return basePath(opts.output, input) + formatExt[format]
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	p := newProgress(c.Logger)
	c.Logger.Debug("rendering", "file", input, "formats", opts.formats)

	s, err := c.openSession(input, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.stop()

	var st store.Store
	if opts.restore || opts.save {
		if err := spin(ctx, "Opening snapshot store...", func(ctx context.Context) error {
			st, err = c.openStore(ctx)
			return err
		}); err != nil {
			return err
		}
		defer st.Close()
	}

	restored := opts.restore && c.restore(ctx, st, s)
	ticks := 0
	if !restored {
		ticks = settle(s.ed, opts.ticks)
	}
	s.ed.Refresh()
	frame := s.ed.Frame()
	p.done("Laid out diagram", "name", s.name, "ticks", ticks, "restored", restored)

	printSuccess("Rendered %s", s.name)
	printStats(len(frame.Nodes), len(frame.Links), dropped(s))

	for _, format := range opts.formats {
		data, err := encodeFrame(ctx, frame, format, cfg.Canvas.Width, cfg.Canvas.Height, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", format, err)
		}
		path := outputPath(opts, input, format)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		printFile(path)
	}

	if opts.save {
		if err := st.Put(ctx, s.ed.Snapshot(s.name)); err != nil {
			return err
		}
		printDetail("saved snapshot %s", s.name)
	}
	return nil
}

func encodeFrame(ctx context.Context, f *render.Frame, format string, w, h float64, opts *renderOpts) ([]byte, error) {
	switch format {
	case formatSVG:
		if opts.fixed {
			return render.SVG(f, render.WithSize(w, h)), nil
		}
		return render.SVG(f), nil
	case formatDOT:
		return []byte(dot.ToDOT(f, dot.Options{Detailed: opts.detailed})), nil
	case formatNeato:
		return dot.RenderSVG(ctx, dot.ToDOT(f, dot.Options{Detailed: opts.detailed}))
	case formatPNG:
		var buf bytes.Buffer
		if err := raster.Encode(&buf, f, raster.Options{Scale: opts.scale}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatJSON:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// dropped counts model entities the diagram holds nothing for. Forms
// never reach the diagram and are not counted.
func dropped(s *session) int {
	st := s.ed.State()
	n := 0
	for _, e := range s.model.Entries() {
		v, _ := e.Get(model.FieldType)
		if model.Type(model.Stringify(v)) == model.TypeForm {
			continue
		}
		if !st.Nodes.Has(e.ID()) && !st.Links.Has(e.ID()) {
			n++
		}
	}
	return n
}

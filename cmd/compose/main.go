// Command compose renders a Markdown document to PDF, HTML, or plain text
// through the layout/solver/coordinate pipeline in internal/. It is a
// single urfave/cli/v3 command with a Before hook that builds the logger;
// the action itself loads configuration. No After hook is registered and
// the logger is not flushed on exit. The context is cancelled on
// SIGINT/SIGTERM, but the pipeline does not check it, so a build in
// progress runs to completion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/rbf22/compose/internal/boxes"
	"github.com/rbf22/compose/internal/config"
	"github.com/rbf22/compose/internal/coords"
	"github.com/rbf22/compose/internal/imageref"
	"github.com/rbf22/compose/internal/layout"
	"github.com/rbf22/compose/internal/mathengine"
	"github.com/rbf22/compose/internal/mdparser"
	"github.com/rbf22/compose/internal/measure"
	"github.com/rbf22/compose/internal/metrics"
	"github.com/rbf22/compose/internal/observability"
	"github.com/rbf22/compose/internal/pdfwriter"
	"github.com/rbf22/compose/internal/solver"
)

type loggerKey struct{}

func loggerFromContext(ctx context.Context) observability.Logger {
	if l, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
		return l
	}
	return observability.NopLogger{}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var z *zap.Logger
	var err error
	if cmd.Bool("debug") {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return ctx, fmt.Errorf("compose: building logger: %w", err)
	}
	return context.WithValue(ctx, loggerKey{}, observability.NewZapLogger(z)), nil
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	loggerFromContext(ctx).Error("render failed", observability.Error("err", err))
	errWasHandled = true
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:           "compose",
		Usage:          "lay out a Markdown document into a paginated PDF, HTML, or text file",
		Before:         setupLogging,
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "destination `FILE` (defaults to the input name with the format's extension)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "pdf", Usage: "output `FORMAT`: pdf, html, or text"},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load page/typography/solver settings from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "verbose development logging"},
		},
		ArgsUsage: "SOURCE.md",
		Action:    render,
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "compose: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func render(ctx context.Context, cmd *cli.Command) error {
	log := loggerFromContext(ctx)

	src := cmd.Args().Get(0)
	if src == "" {
		return fmt.Errorf("compose: missing SOURCE.md argument")
	}
	format := cmd.String("format")
	if format != "pdf" && format != "html" && format != "text" {
		return fmt.Errorf("compose: unknown format %q, want pdf, html, or text", format)
	}

	out := cmd.String("output")
	if out == "" {
		out = defaultOutput(src, format)
	}

	source, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("compose: reading %s: %w", src, err)
	}

	resolved := config.Default()
	if cfgPath := cmd.String("config"); cfgPath != "" {
		resolved, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("compose: loading config: %w", err)
		}
	}

	doc, err := mdparser.Parse(source)
	if err != nil {
		return fmt.Errorf("compose: parsing %s: %w", src, err)
	}

	metricsProvider := metrics.NewProvider(log)
	cache := measure.New(4096)
	mathEngine := mathengine.New(metricsProvider, resolved.Layout.DefaultFont)
	images := imageref.NewResolver(filepath.Dir(src))

	gen := layout.New(resolved.Layout, metricsProvider, cache, mathEngine, images, log)
	gen.SetLineBreakParams(resolved.LineBreak)

	state, err := gen.Generate(doc)
	if err != nil {
		return fmt.Errorf("compose: laying out %s: %w", src, err)
	}

	sv := solver.New(resolved.Solver, solver.DefaultRules(), log)
	state = sv.Solve(state)
	if len(state.ResidualViolations) > 0 {
		log.Warn("layout has residual violations after solving",
			observability.Int("count", len(state.ResidualViolations)))
	}

	data, err := renderOutput(state, format, images)
	if err != nil {
		return fmt.Errorf("compose: rendering %s: %w", format, err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("compose: writing %s: %w", out, err)
	}
	log.Info("wrote document", observability.String("path", out), observability.Int("pages", len(state.Pages)))
	return nil
}

// renderOutput drives the solved layout through the coordinate adapter for
// format and serializes the result, selecting IdentityTransform for the
// PDF backend's already-bottom-left-origin space and FlipY for HTML's
// top-left-origin one (internal/coords's package doc explains why).
func renderOutput(state boxes.LayoutState, format string, images *imageref.Resolver) ([]byte, error) {
	switch format {
	case "pdf":
		adapter := coords.NewPDFAdapter()
		adapter.Images = images
		if err := coords.Render(state, coords.IdentityTransform, adapter); err != nil {
			return nil, err
		}
		return pdfwriter.Write(adapter.Document())

	case "html":
		adapter := coords.NewHTMLAdapter()
		if err := coords.Render(state, coords.FlipY, adapter); err != nil {
			return nil, err
		}
		return adapter.Bytes()

	case "text":
		adapter := coords.NewTextAdapter()
		if err := coords.Render(state, coords.IdentityTransform, adapter); err != nil {
			return nil, err
		}
		out := ""
		for i, page := range adapter.Pages {
			if i > 0 {
				out += "\f"
			}
			out += page
		}
		return []byte(out), nil

	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func defaultOutput(src, format string) string {
	ext := map[string]string{"pdf": ".pdf", "html": ".html", "text": ".txt"}[format]
	base := src[:len(src)-len(filepath.Ext(src))]
	return base + ext
}

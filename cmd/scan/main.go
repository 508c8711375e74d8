// Command scan acquires pages from a scanner and assembles them into a
// multi-page PDF or a numbered set of PNG files.
//
// The native device binding is pluggable; the built-in "dir:" backend
// replays image files from a directory, which is what you want for dry
// runs and tests:
//
//	scan -backend dir:./pages -multi -a4 pad -dpi 150x150 out.pdf
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"scankit/assemble"
	"scankit/capture"
	"scankit/capture/imagedir"
	"scankit/config"
	"scankit/normalize"
	"scankit/observability"
	"scankit/session"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	var (
		list        = fs.Bool("list", false, "list available devices and exit")
		dev         = fs.String("dev", "", "device code or substring (default: configured device)")
		dpiFlag     = fs.String("dpi", "", "capture/output resolution as NxM, e.g. 300x300 (default: configured dpi)")
		a4          = fs.String("a4", "", "enforce DIN A4 paper size: stretch or pad")
		landscape   = fs.Bool("landscape", false, "rotate each page 90 degrees counter-clockwise")
		multi       = fs.Bool("multi", false, "acquire through the document feeder until it is empty")
		formatFlag  = fs.String("format", "", "output format: pdf or png (default: by output extension, then configured format)")
		backendSpec = fs.String("backend", "", "capture backend, e.g. dir:/path/with/images")
		configPath  = fs.String("config", defaultConfigPath(), "config file")
		verbose     = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: scan [flags] [output-path]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := observability.Slog(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *dev != "" {
		cfg.Device = *dev
	}
	if *dpiFlag != "" {
		dpi, err := parseDPI(*dpiFlag)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		cfg.DPI = [2]int{dpi.X, dpi.Y}
	}
	out := cfg.Output
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "at most one output path expected")
		return 2
	}
	if fs.NArg() == 1 {
		out = fs.Arg(0)
	}

	paper, err := parsePaperMode(*a4)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	format, err := pickFormat(*formatFlag, out, cfg.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	backend, err := openBackend(*backendSpec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	sess, err := session.New(session.Config{
		Device: cfg.Device,
		Policy: normalize.Policy{
			Paper:     paper,
			Landscape: *landscape,
			OutputDPI: cfg.Resolution(),
		},
	}, backend, session.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *list {
		devs, err := sess.Devices(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		for _, d := range devs {
			fmt.Printf("%s\t%s\n", d.Code, d.Name)
		}
		return 0
	}

	if *multi {
		_, err = sess.ScanMulti(ctx)
	} else {
		_, err = sess.ScanSingle(ctx)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := sess.Save(assemble.OutputSpec{Format: format, Path: out}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("wrote %d pages to %s\n", sess.PageCount(), out)
	return 0
}

func parseDPI(s string) (capture.Resolution, error) {
	xs, ys, ok := strings.Cut(s, "x")
	if !ok {
		return capture.Resolution{}, fmt.Errorf("invalid -dpi %q, want NxM", s)
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return capture.Resolution{}, fmt.Errorf("invalid -dpi %q: %w", s, err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return capture.Resolution{}, fmt.Errorf("invalid -dpi %q: %w", s, err)
	}
	r := capture.Resolution{X: x, Y: y}
	if !r.Valid() {
		return capture.Resolution{}, fmt.Errorf("invalid -dpi %q: values must be positive", s)
	}
	return r, nil
}

func parsePaperMode(s string) (normalize.PaperMode, error) {
	switch s {
	case "":
		return normalize.PaperOff, nil
	case "stretch":
		return normalize.PaperStretch, nil
	case "pad":
		return normalize.PaperPad, nil
	}
	return normalize.PaperOff, fmt.Errorf("invalid -a4 %q, want stretch or pad", s)
}

// pickFormat resolves the output format: explicit flag, then output
// file extension, then the configured default.
func pickFormat(flagVal, out, cfgVal string) (assemble.Format, error) {
	name := flagVal
	if name == "" {
		switch strings.ToLower(filepath.Ext(out)) {
		case ".png":
			name = "png"
		case ".pdf":
			name = "pdf"
		default:
			name = cfgVal
		}
	}
	switch name {
	case "pdf":
		return assemble.PDF, nil
	case "png":
		return assemble.PNGSet, nil
	}
	return assemble.PDF, fmt.Errorf("invalid output format %q, want pdf or png", name)
}

func openBackend(spec string) (capture.Backend, error) {
	if spec == "" {
		return nil, errors.New("no capture backend selected; use -backend dir:<path> (the native scanner binding ships separately)")
	}
	kind, arg, _ := strings.Cut(spec, ":")
	switch kind {
	case "dir":
		if arg == "" {
			return nil, errors.New("-backend dir: needs a directory path")
		}
		return imagedir.New(arg), nil
	}
	return nil, fmt.Errorf("unknown capture backend %q", spec)
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "scankit", "config.json")
}

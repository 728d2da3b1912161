// effck checks the function effects of .eff source files
// and prints the diagnostics.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eaburns/effck/checker"
	"github.com/eaburns/effck/loc"
	"github.com/eaburns/effck/parser"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run runs effck with the command line arguments
// and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("effck", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		config      = flags.String("config", "", "path to a YAML config file")
		v           = flags.Bool("v", false, "print verbose notes")
		werror      = flags.Bool("Werror", false, "treat warnings as errors")
		parallelism = flags.Int("parallelism", 0, "max declarations checked concurrently (default: number of CPUs)")
		color       = flags.String("color", "auto", "color diagnostics: auto, always, or never")
		traceDepth  = flags.Int("trace.depth", 0, "max depth for trace (0 = no trace; -1 = infinite)")
		trimPrefix  = flags.String("trim", "", "path prefix to trim from diagnostic locations")
	)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "effck [flags] <file.eff>...\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() == 0 {
		fmt.Fprintf(stderr, "at least one source file is required\n")
		flags.Usage()
		return 2
	}

	opts := defaultOptions()
	if *config != "" {
		if err := loadOptions(*config, &opts); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return 1
		}
	}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			opts.VerboseNotes = *v
		case "Werror":
			opts.WarningsAsErrors = *werror
		case "parallelism":
			opts.Parallelism = *parallelism
		case "color":
			opts.Color = *color
		case "trace.depth":
			opts.TraceDepth = *traceDepth
		case "trim":
			opts.TrimPathPrefix = *trimPrefix
		}
	})
	if err := opts.validate("flags"); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return 2
	}

	p := parser.NewParser()
	for _, path := range flags.Args() {
		if err := p.ParseFile(path); err != nil {
			fmt.Fprintln(stdout, err)
			return 1
		}
	}

	logger := zap.NewNop()
	if opts.TraceDepth != 0 {
		logger = newTraceLogger(stderr)
	}
	defer logger.Sync()

	res := checker.Check(p.Files, checker.Config{
		Parallelism:         opts.Parallelism,
		TraceDepth:          opts.TraceDepth,
		Logger:              logger,
		TrimErrorPathPrefix: opts.TrimPathPrefix,
	})
	colored := useColor(opts.Color, stdout)
	failed := false
	for _, d := range res.Diags {
		if d.Severity == checker.Error || opts.WarningsAsErrors {
			failed = true
		}
		fmt.Fprintln(stdout, render(d, res.Files, opts, colored))
	}
	if failed {
		return 1
	}
	return 0
}

// newTraceLogger returns a logger writing the trace to w.
// Trace lines are indented, so only the message is printed.
func newTraceLogger(w io.Writer) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.LevelKey = ""
	cfg.CallerKey = ""
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.Lock(zapcore.AddSync(w)),
		zap.DebugLevel,
	)
	return zap.New(core)
}

func useColor(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

// render returns the diagnostic text.
// If colored, the first line is colored by severity.
func render(d *checker.Diagnostic, files loc.Files, opts options, colored bool) string {
	s := d.Format(files, checker.FormatOptions{
		TrimPathPrefix: opts.TrimPathPrefix,
		Verbose:        opts.VerboseNotes,
	})
	if !colored {
		return s
	}
	first, rest := s, ""
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first, rest = s[:i], s[i:]
	}
	color := ansiRed
	if d.Severity == checker.Warning {
		color = ansiYellow
	}
	return color + first + ansiReset + rest
}

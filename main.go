package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mcncl/castor/internal/analyzer"
	"github.com/mcncl/castor/internal/config"
	"github.com/mcncl/castor/internal/errors"
	"github.com/mcncl/castor/internal/formatter"
	"github.com/mcncl/castor/internal/inspector"
	"github.com/mcncl/castor/internal/metrics"
	"github.com/mcncl/castor/internal/models"
	"github.com/mcncl/castor/internal/output"
	"github.com/mcncl/castor/internal/parser"
	"github.com/mcncl/castor/internal/proxy"
	"github.com/sirupsen/logrus"
)

// CLI defines the command-line interface
var CLI struct {
	Config    string           `help:"Path to config file. Defaults to the nearest .castor.yml." short:"c" type:"path"`
	LogLevel  string           `help:"Log level (trace, debug, info, warn, error)." env:"CASTOR_LOG_LEVEL"`
	OutputDir string           `help:"Directory inferred schemas are written to." name:"output-dir" env:"CASTOR_OUTPUT" type:"path"`
	NoChecks  bool             `help:"Inspect messages whatever their content type." env:"CASTOR_NO_CHECKS"`
	Version   kong.VersionFlag `help:"Show version information." short:"v"`

	Infer InferCmd `cmd:"" default:"withargs" help:"Infer the schema of a JSON document."`
	Proxy ProxyCmd `cmd:"" help:"Run a reverse proxy that infers schemas for JSON traffic."`
}

// InferCmd reads one document and prints its schema.
type InferCmd struct {
	Input       string `help:"Path to input JSON file. If not specified, reads from stdin." short:"i" type:"path"`
	Output      string `help:"Path to output schema file. If not specified, writes to stdout." short:"o" type:"path"`
	Interactive bool   `help:"Run in interactive mode, allowing direct JSON input with Ctrl+D to process." short:"I"`
}

// ProxyCmd runs the inspecting reverse proxy.
type ProxyCmd struct {
	Listen        string `help:"Address the proxy listens on." env:"CASTOR_LISTEN"`
	Target        string `help:"Upstream base URL, e.g. http://localhost:3000." env:"CASTOR_TARGET"`
	MetricsListen string `help:"Address Prometheus metrics are served on." env:"CASTOR_METRICS_LISTEN"`
	MaxBodyBytes  int64  `help:"Largest body, in bytes, that is inspected."`
}

// Context holds the runtime context
type Context struct {
	Config *config.Config
	Log    *logrus.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	parser := kong.Must(&CLI,
		kong.Name("castor"),
		kong.Description("Infer schemas from JSON documents and proxied JSON traffic"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		// Usage has already been shown by kong.UsageOnError()
		os.Exit(1)
	}

	// No arguments at all means a person is at the terminal.
	if len(os.Args) == 1 {
		CLI.Infer.Interactive = true
	}

	cfg, err := loadConfig()
	if err != nil {
		exitWithError(err)
	}

	ctx := &Context{
		Config: cfg,
		Log:    newLogger(cfg.LogLevel),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	if err := kctx.Run(ctx); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", errors.UserFriendlyError(err))
	fmt.Fprintf(os.Stderr, "\nFor help, run: castor --help\n")
	os.Exit(1)
}

// overrides collects the values given on the command line or in the
// environment.
func overrides() config.Overrides {
	o := config.Overrides{
		Output:        CLI.OutputDir,
		LogLevel:      CLI.LogLevel,
		Listen:        CLI.Proxy.Listen,
		Target:        CLI.Proxy.Target,
		MetricsListen: CLI.Proxy.MetricsListen,
		MaxBodyBytes:  CLI.Proxy.MaxBodyBytes,
	}
	if CLI.NoChecks {
		checks := false
		o.Checks = &checks
	}
	return o
}

func loadConfig() (*config.Config, error) {
	path := CLI.Config
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(path, overrides())
	if err != nil {
		return nil, errors.NewConfigError("failed to load configuration", err)
	}
	return cfg, nil
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// Run infers and writes the schema for one document.
func (c *InferCmd) Run(ctx *Context) error {
	ir, err := c.parseInput(ctx)
	if err != nil {
		return err
	}

	schema, err := formatter.NewFormatterWithIndent(ctx.Config.Indent).Format(analyzer.InferDocument(ir))
	if err != nil {
		return err
	}

	return c.writeOutput(ctx, schema)
}

// parseInput reads JSON from file or stdin
func (c *InferCmd) parseInput(ctx *Context) (models.IntermediateRepresentation, error) {
	if c.Input != "" {
		return parser.ParseFile(c.Input)
	}

	if f, ok := ctx.Stdin.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewInputError("failed to access stdin", err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			if c.Interactive {
				return readInteractiveInput(ctx)
			}
			return models.IntermediateRepresentation{}, errors.NewInputError("no input provided", errors.ErrNoInput)
		}
	}

	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError("failed to read from stdin", err)
	}
	if len(data) == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}

	return parser.ParseBytes(data)
}

// writeOutput writes the schema to file or stdout
func (c *InferCmd) writeOutput(ctx *Context, schema string) error {
	if c.Output != "" {
		if err := os.WriteFile(c.Output, []byte(schema+"\n"), 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", c.Output), err)
		}
		fmt.Fprintf(ctx.Stderr, "Schema written to %s\n", c.Output)
		return nil
	}

	if _, err := fmt.Fprintln(ctx.Stdout, schema); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}

// readInteractiveInput lets users paste JSON and signal completion with
// Ctrl+D (EOF)
func readInteractiveInput(ctx *Context) (models.IntermediateRepresentation, error) {
	fmt.Fprintln(ctx.Stderr, "Castor Interactive Mode")
	fmt.Fprintln(ctx.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(ctx.Stdin)
	var b strings.Builder
	for {
		line, err := reader.ReadString('\n')
		b.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.IntermediateRepresentation{}, errors.NewInputError("error reading input", err)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}

	fmt.Fprintln(ctx.Stderr, "\nProcessing JSON...")
	return parser.ParseString(b.String())
}

// Run serves the proxy until interrupted.
func (c *ProxyCmd) Run(ctx *Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runProxy(sigCtx, ctx)
}

func runProxy(ctx context.Context, rc *Context) error {
	cfg := rc.Config
	m := metrics.New()

	var writer *output.Writer
	if cfg.Output != "" {
		writer = output.NewWriter(cfg.Output)
	}

	insp := inspector.New(inspector.Options{
		Checks:    cfg.Checks,
		Writer:    writer,
		Formatter: formatter.NewFormatterWithIndent(cfg.Indent),
		Metrics:   m,
		Logger:    rc.Log,
	})

	srv, err := proxy.New(cfg, insp, m, rc.Log)
	if err != nil {
		return err
	}

	rc.Log.WithFields(logrus.Fields{
		"target": cfg.Proxy.Target,
		"output": cfg.Output,
		"checks": cfg.Checks,
	}).Info("Starting proxy")
	return srv.Run(ctx)
}

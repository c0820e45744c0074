package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iotaledger/hive.go/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/daios-ai/lox"
)

const appName = "lox"

// Exit codes follow sysexits(3).
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65
	exitNoInput  = 66
	exitSoftware = 70
)

var useColor bool

func red(s string) string {
	if !useColor {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

func blue(s string) string {
	if !useColor {
		return s
	}
	return "\x1b[94m" + s + "\x1b[0m"
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		os.Exit(cmdRepl(nil))
	}

	switch cmd := args[0]; cmd {
	case "run":
		os.Exit(cmdRun(args[1:]))
	case "repl":
		os.Exit(cmdRepl(args[1:]))
	case "tokens":
		os.Exit(cmdTokens(args[1:]))
	case "fmt":
		os.Exit(cmdFmt(args[1:]))
	case "version":
		fmt.Println(lox.Version)
	case "-h", "--help", "help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage(os.Stderr)
		os.Exit(exitUsage)
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Lox %s (built %s)

Usage:
  %s run [flags] <file.lox>     Run a script.
  %s repl [flags]               Start the REPL (default with no arguments).
  %s tokens <file.lox>          Print the token stream.
  %s fmt <file.lox>             Print the program in canonical layout.
  %s version                    Print the compiled version.

Flags (run, repl):
  --config <path>     YAML config (default $HOME/.loxrc.yaml)
  --scoping <mode>    lexical | dynamic
  --log-level <lvl>   debug | info | warn | error
  --stats             print interpreter counters on exit (run only)
`, lox.Version, lox.BuildDate, appName, appName, appName, appName, appName)
}

// commonFlags are shared by run and repl; unset flags keep config values.
type commonFlags struct {
	fs       *flag.FlagSet
	config   string
	scoping  string
	logLevel string
	stats    bool
}

func newCommonFlags(name string) *commonFlags {
	cf := &commonFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	cf.fs.SetOutput(os.Stderr)
	cf.fs.StringVar(&cf.config, "config", "", "path to YAML config")
	cf.fs.StringVar(&cf.scoping, "scoping", "", "closure capture: lexical or dynamic")
	cf.fs.StringVar(&cf.logLevel, "log-level", "", "log level")
	cf.fs.BoolVar(&cf.stats, "stats", false, "print interpreter counters on exit")
	return cf
}

// resolve loads the config file and applies flag overrides.
func (cf *commonFlags) resolve() (Config, error) {
	path, explicit := cf.config, cf.config != ""
	if !explicit {
		path = defaultConfigPath()
	}
	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return cfg, err
	}
	if cf.scoping != "" {
		cfg.Scoping = cf.scoping
	}
	if cf.logLevel != "" {
		cfg.LogLevel = cf.logLevel
	}
	if cf.stats {
		cfg.Stats = true
	}
	if _, err := cfg.scoping(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newInterpreter(cfg Config, log *logger.Logger, reg prometheus.Registerer) *lox.Interpreter {
	scoping, _ := cfg.scoping()
	return lox.NewInterpreter(
		lox.WithLogger(log),
		lox.WithScoping(scoping),
		lox.WithRegisterer(reg),
	)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	cf := newCommonFlags("run")
	if err := cf.fs.Parse(args); err != nil {
		return exitUsage
	}
	if cf.fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [flags] <file.lox>\n", appName)
		return exitUsage
	}
	cfg, err := cf.resolve()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitUsage
	}
	useColor = cfg.colorEnabled()

	root, err := newRootLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitUsage
	}
	defer func() { _ = root.Sync() }()

	file := cf.fs.Arg(0)
	src, err := readSource(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitNoInput
	}

	reg := prometheus.NewRegistry()
	ip := newInterpreter(cfg, root.Named("interp"), reg)
	code := exitOK
	if err := ip.RunSource(file, src, false); err != nil {
		if lox.IsParseError(err) {
			fmt.Fprintln(os.Stderr, red(lox.WrapErrorWithName(err, file, src).Error()))
			code = exitDataErr
		} else {
			code = exitSoftware
		}
	}
	if cfg.Stats {
		if err := dumpStats(os.Stderr, reg); err != nil {
			root.Warnf("stats: %v", err)
		}
	}
	return code
}

func readSource(file string) (string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read %s", file)
	}
	return string(b), nil
}

func dumpStats(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gather")
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "encode")
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// tokens / fmt
// -----------------------------------------------------------------------------

func cmdTokens(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s tokens <file.lox>\n", appName)
		return exitUsage
	}
	src, err := readSource(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitNoInput
	}
	toks, lexErr := lox.NewLexer(src).Scan()
	for _, t := range toks {
		fmt.Printf("%4d:%-3d %-10s %s\n", t.Line, t.Col+1, t.Type, t.Lexeme)
	}
	if lexErr != nil {
		fmt.Fprintln(os.Stderr, red(lox.WrapErrorWithName(lexErr, args[0], src).Error()))
		return exitDataErr
	}
	return exitOK
}

func cmdFmt(args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s fmt <file.lox>\n", appName)
		return exitUsage
	}
	src, err := readSource(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return exitNoInput
	}
	prog, err := lox.ScanAndParse(src, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, red(lox.WrapErrorWithName(err, args[0], src).Error()))
		return exitDataErr
	}
	fmt.Println(lox.FormatProgram(prog))
	return exitOK
}

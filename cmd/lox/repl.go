package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/daios-ai/lox"
)

var (
	banner   = fmt.Sprintf("Lox %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", lox.Version)
	helpText = `REPL commands:
  :quit         Exit the REPL
  :env          List global bindings and the scoping mode
  :ast <code>   Print the parsed program in canonical layout
  :help         Show this text
`
)

func cmdRepl(args []string) int {
	cf := newCommonFlags("repl")
	if err := cf.fs.Parse(args); err != nil {
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

	session := uuid.NewString()
	log := root.Named("repl").With("session", session)
	log.Debugf("session started")

	fmt.Println(banner)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := cfg.historyPath()
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			f, err := os.Create(histPath)
			if err != nil {
				log.Warnf("cannot write history %s: %v", histPath, err)
				return
			}
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}()
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	ip := newInterpreter(cfg, log.Named("interp"), prometheus.NewRegistry())

	for {
		code, ok := readByParseProbe(ln, cfg.Prompt, cfg.Continuation)
		if !ok {
			fmt.Println()
			break
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			if replCommand(os.Stdout, ip, trimmed) {
				return exitOK
			}
			continue
		}

		if err := ip.RunSource("<repl>", code, true); err != nil && lox.IsParseError(err) {
			fmt.Fprintln(os.Stderr, red(lox.WrapErrorWithName(err, "<repl>", code).Error()))
		}
	}
	log.Debugf("session ended")
	return exitOK
}

// replCommand handles a ':' command line; it reports whether to quit.
func replCommand(w io.Writer, ip *lox.Interpreter, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprint(w, helpText)
	case ":env":
		fmt.Fprintf(w, "// scoping: %s\n", ip.Scoping())
		for _, name := range ip.Global.Names() {
			v, _ := ip.Global.Get(name)
			fmt.Fprintf(w, "%s = %s\n", name, blue(v.String()))
		}
	case ":ast":
		src := strings.TrimSpace(rest)
		prog, err := lox.ScanAndParse(src, w)
		if err != nil {
			fmt.Fprintln(w, red(lox.WrapErrorWithName(err, "<repl>", src).Error()))
			return false
		}
		fmt.Fprintln(w, lox.FormatProgram(prog))
	default:
		fmt.Fprintln(w, "unknown command. Type :help for commands.")
	}
	return false
}

// readByParseProbe keeps prompting while the buffered input parses as
// incomplete (an unclosed block or a statement missing its ';').
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		p := prompt
		if b.Len() > 0 {
			p = cont
		}
		line, err := ln.Prompt(p)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		_, perr := lox.ParseInteractive(src)
		if perr != nil && lox.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

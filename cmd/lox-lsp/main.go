// cmd/lox-lsp/main.go
//
// ROLE: Executable entrypoint and JSON-RPC dispatch loop.
//
// Logs go to stderr; stdout carries the protocol only.

package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iotaledger/hive.go/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	level := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	log, err := newLogger(*level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lox-lsp:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	if err := serve(os.Stdin, os.Stdout, log); err != nil {
		log.Errorf("serve: %v", err)
		os.Exit(1)
	}
}

func newLogger(level string) (*logger.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return z.Sugar().Named("lox-lsp"), nil
}

// serve runs the read-dispatch loop until the client sends `exit` or closes
// the stream.
func serve(in io.Reader, out io.Writer, log *logger.Logger) error {
	s := newServer(out, log)
	r := bufio.NewReader(in)

	for {
		msg, err := readMsg(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var req Request
		if err := json.Unmarshal(msg, &req); err != nil {
			s.LogWarnf("malformed message: %v", err)
			continue
		}
		s.LogDebugf("<- %s", req.Method)

		switch req.Method {
		// lifecycle
		case "initialize":
			s.onInitialize(req.ID, req.Params)
		case "initialized":
		case "shutdown":
			s.sendResponse(req.ID, nil, nil)
		case "exit":
			return nil

		// text sync
		case "textDocument/didOpen":
			s.onDidOpen(req.Params)
		case "textDocument/didChange":
			s.onDidChange(req.Params)
		case "textDocument/didClose":
			s.onDidClose(req.Params)

		// features
		case "textDocument/hover":
			s.onHover(req.ID, req.Params)
		case "textDocument/documentSymbol":
			s.onDocumentSymbols(req.ID, req.Params)
		case "textDocument/formatting":
			s.onFormatting(req.ID, req.Params)
		case "textDocument/foldingRange":
			s.onFoldingRange(req.ID, req.Params)

		default:
			s.methodNotFound(req)
		}
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gazette-app/valguard/internal/config"
	"github.com/gazette-app/valguard/internal/handler/dto"
	"github.com/gazette-app/valguard/internal/model"
	"github.com/gazette-app/valguard/internal/service"
)

var validateFlags struct {
	kind        string
	file        string
	source      string
	caller      string
	bypassCache bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate one payload through the full layer and print the verdict as JSON",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateFlags.kind, "kind", "", "content kind: newsletter, article or extraction")
	f.StringVar(&validateFlags.file, "file", "-", "payload file, - for stdin")
	f.StringVar(&validateFlags.source, "source", "", "optional source label")
	f.StringVar(&validateFlags.caller, "caller", "cli", "caller ID used by the debouncer")
	f.BoolVar(&validateFlags.bypassCache, "bypass-cache", false, "recompute even when a cached verdict exists")
	_ = validateCmd.MarkFlagRequired("kind")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout carries the verdict, so logs go to stderr.
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	content, err := readPayload(cmd.InOrStdin(), validateFlags.file)
	if err != nil {
		return err
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	out, err := a.service.Validate(cmd.Context(), service.ValidateInput{
		CallerID: validateFlags.caller,
		Request: model.ValidationRequest{
			Kind:    model.ContentKind(validateFlags.kind),
			Content: content,
			Source:  validateFlags.source,
		},
		BypassCache: validateFlags.bypassCache,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if !out.Decision.Allowed {
		return enc.Encode(dto.ToDebouncedResponse(out.Decision))
	}
	return enc.Encode(dto.ValidateResponse{
		Result: out.Result,
		Cached: out.Cached,
		Shared: out.Shared,
	})
}

func readPayload(stdin io.Reader, path string) (string, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(io.LimitReader(stdin, model.MaxContentLength+1))
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	return string(b), nil
}

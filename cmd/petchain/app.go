package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"petchain/internal/contract"
	"petchain/internal/contract/handler"
	"petchain/internal/contract/service"
	"petchain/internal/platform/logger"
)

var errRejected = errors.New("transaction rejected")

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "petchain",
		Usage:     "verifies pet provenance transitions without a server",
		Version:   "v0.1.0",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warn",
				Usage: "log level written to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "verify a transaction read from FILE, or stdin when FILE is - or missing",
				ArgsUsage: "[FILE]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "batch",
						Usage: `input is {"transactions": [...]}`,
					},
				},
				Action: func(c *cli.Context) error {
					in, closeIn, err := openInput(c.Args().First(), stdin)
					if err != nil {
						return err
					}
					defer closeIn()

					svc, err := service.New(service.WithLogger(logger.NewTo(stderr, c.String("log-level"), "text")))
					if err != nil {
						return err
					}
					if c.Bool("batch") {
						return verifyBatch(c.Context, svc, in, stdout)
					}
					return verifyOne(c.Context, svc, in, stdout)
				},
			},
			{
				Name:      "fingerprint",
				Usage:     "print the fingerprint of a transaction read from FILE or stdin",
				ArgsUsage: "[FILE]",
				Action: func(c *cli.Context) error {
					in, closeIn, err := openInput(c.Args().First(), stdin)
					if err != nil {
						return err
					}
					defer closeIn()

					req, err := decode[handler.VerifyRequest](in)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(stdout, contract.Fingerprint(req.Transaction()))
					return err
				},
			},
			{
				Name:  "rules",
				Usage: "list the contract rules in evaluation order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "command",
						Usage: "only list rules for this command (born or transfer)",
					},
				},
				Action: func(c *cli.Context) error {
					resp := handler.FromRules()
					if name := c.String("command"); name != "" {
						cmd, err := contract.ParseCommandType(name)
						if err != nil || !cmd.IsKnown() {
							return fmt.Errorf("unknown command %q", name)
						}
						filtered := resp.Commands[:0]
						for _, cr := range resp.Commands {
							if cr.Command == string(cmd) {
								filtered = append(filtered, cr)
							}
						}
						resp.Commands = filtered
					}
					return writeJSON(stdout, resp)
				},
			},
		},
	}
}

func verifyOne(ctx context.Context, svc *service.Service, in io.Reader, out io.Writer) error {
	req, err := decode[handler.VerifyRequest](in)
	if err != nil {
		return err
	}
	result, err := svc.Verify(ctx, req.Transaction())
	if err != nil {
		return err
	}
	if err := writeJSON(out, handler.FromResult(result)); err != nil {
		return err
	}
	if !result.Accepted {
		return errRejected
	}
	return nil
}

func verifyBatch(ctx context.Context, svc *service.Service, in io.Reader, out io.Writer) error {
	req, err := decode[handler.VerifyBatchRequest](in)
	if err != nil {
		return err
	}
	results, err := svc.VerifyBatch(ctx, req.ParsedTransactions())
	if err != nil {
		return err
	}
	resp := handler.FromResults(results)
	if err := writeJSON(out, resp); err != nil {
		return err
	}
	if resp.Rejected > 0 {
		return errRejected
	}
	return nil
}

// decode reads and validates a request body the same way the HTTP handlers do.
func decode[T any, PT interface {
	*T
	Validate() error
}](in io.Reader) (*T, error) {
	var req T
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	if err := PT(&req).Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(strings.TrimSpace(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

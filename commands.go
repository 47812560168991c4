// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-core-stack/openapi-gateway/pkg/config"
	"github.com/go-core-stack/openapi-gateway/pkg/gateway"
)

type rootFlags struct {
	upstream string
	pretty   bool
}

func newRootCommand(cfg *config.Config) *cobra.Command {
	flags := rootFlags{}
	if cfg.Upstream != nil {
		flags.upstream = cfg.Upstream.String()
	}

	root := &cobra.Command{
		Use:           "openapi-gateway",
		Short:         "Expose a remote OpenAPI service as locally synthesized proxy routes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if flags.upstream != "" {
				if err := cfg.SetUpstream(flags.upstream); err != nil {
					return err
				}
			}
			if err := setupLogging(*cfg, flags.pretty); err != nil {
				return err
			}
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.upstream, "upstream", flags.upstream, "remote service base URL (GATEWAY_UPSTREAM_URL)")
	pf.StringVar(&cfg.SchemaPath, "schema-path", cfg.SchemaPath, "schema endpoint under the upstream (GATEWAY_SCHEMA_PATH)")
	pf.DurationVar(&cfg.SchemaTimeout, "schema-timeout", cfg.SchemaTimeout, "schema fetch timeout (GATEWAY_SCHEMA_TIMEOUT)")
	pf.IntVar(&cfg.SchemaAttempts, "schema-attempts", cfg.SchemaAttempts, "schema fetch attempts while the upstream is unreachable (GATEWAY_SCHEMA_ATTEMPTS)")
	pf.StringVar(&cfg.MountPath, "mount-path", cfg.MountPath, "prefix for proxied routes (GATEWAY_MOUNT_PATH)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (GATEWAY_LOG_LEVEL)")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotate logs into this file instead of stderr (GATEWAY_LOG_FILE)")
	pf.BoolVar(&flags.pretty, "pretty", false, "human readable console logs")

	f := root.Flags()
	f.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "local bind address (GATEWAY_LISTEN_ADDR)")
	f.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "per-call forwarding timeout (GATEWAY_REQUEST_TIMEOUT)")
	f.StringSliceVar(&cfg.ForwardHeaders, "forward-header", cfg.ForwardHeaders, "inbound headers relayed to the upstream (GATEWAY_FORWARD_HEADERS)")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origins (GATEWAY_CORS_ORIGINS)")

	root.AddCommand(newRoutesCommand(cfg))
	return root
}

// run executes the CLI with args. Commands only return errors; a failure is
// reported here, once, with the upstream when one is known.
func run(ctx context.Context, cfg *config.Config, args []string) error {
	root := newRootCommand(cfg)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		event := log.Error().Err(err)
		if cfg.Upstream != nil {
			event = event.Str("upstream", cfg.Upstream.String())
		}
		event.Msg("openapi gateway failed")
		return err
	}
	return nil
}

func newRoutesCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Fetch the upstream schema and print the synthesized route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gw, err := gateway.New(*cfg)
			if err != nil {
				return err
			}
			table, err := gw.Assemble(cmd.Context())
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), table)
		},
	}
}

func printTable(out io.Writer, table *gateway.Table) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s %s (%s)\n", table.Title, table.Version, table.Upstream)
	fmt.Fprintln(tw, "METHOD\tPATH\tOPERATION\tTARGET")
	for _, d := range table.Routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Method, table.Mount+d.Path, d.OperationID, d.Target+d.Path)
	}
	return tw.Flush()
}

// setupLogging applies the level and output sink to the global logger.
func setupLogging(cfg config.Config, pretty bool) error {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
	} else if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Logger()
	return nil
}

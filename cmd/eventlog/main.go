package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mini-eventlog/internal/broker"
	"mini-eventlog/internal/config"
	"mini-eventlog/internal/logging"
	"mini-eventlog/internal/server"
	"mini-eventlog/pkg/api"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "eventlog",
		Short:         "Append-only JSON event log",
		Long:          "eventlog keeps one newline-delimited JSON log per topic and serves it over HTTP.",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().String("broker", "localhost:8080", "Server address for client commands")

	rootCmd.AddCommand(newServeCmd(), newPutCmd(), newGetCmd(), newTopicsCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the data directory and serve it over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := serveConfig(cmd)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runServer(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.String("config", "", "Path to a TOML config file")
	f.String("data-dir", "", "Directory holding one log file per topic")
	f.String("address", "", "Address to bind the HTTP server to")
	f.Int("port", 0, "Port for the HTTP server")
	f.String("startup-policy", "", "What to do when logs fail to load: serve or refuse")
	f.Bool("sync", false, "fsync every append")
	f.String("log-level", "", "Log level: debug, info, warn, error")
	f.String("log-format", "", "Log format: console or json")
	return cmd
}

// serveConfig loads the config file and applies any flags set on the
// command line over it.
func serveConfig(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	path, _ := f.GetString("config")
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if f.Changed("data-dir") {
		cfg.DataDir, _ = f.GetString("data-dir")
	}
	if f.Changed("address") {
		cfg.Address, _ = f.GetString("address")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("startup-policy") {
		policy, _ := f.GetString("startup-policy")
		cfg.StartupPolicy = config.StartupPolicy(policy)
	}
	if f.Changed("sync") {
		cfg.SyncWrites, _ = f.GetBool("sync")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// runServer serves until ctx is done or the server fails, then shuts down.
func runServer(ctx context.Context, cfg *config.Config) error {
	b, err := broker.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start broker: %w", err)
	}
	for _, loadErr := range b.LoadErrors() {
		log.Warn().Err(loadErr).Msg("Log not fully loaded")
	}

	s := server.New(cfg, b)
	if err := s.Start(); err != nil {
		b.Stop()
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-s.Err():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <topic> <json>",
		Short: "Append one JSON record to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := api.NewProducer(&api.ProducerConfig{
				BrokerAddresses: []string{brokerAddr(cmd)},
				Timeout:         10 * time.Second,
				RetryAttempts:   2,
				RetryBackoff:    100 * time.Millisecond,
			})
			resp, err := p.SendRaw(args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", resp.Topic, resp.Ordinal)
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <topic>",
		Short: "Print one window of records from a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetInt("from")
			c := api.NewConsumer(&api.ConsumerConfig{
				BrokerAddresses: []string{brokerAddr(cmd)},
				Timeout:         10 * time.Second,
				StartOrdinal:    1,
			})
			res, err := c.Fetch(args[0], from)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Int("from", 1, "Ordinal of the first record to read")
	return cmd
}

func printRecords(w io.Writer, res *api.FetchResult) error {
	for _, rec := range res.Records {
		if _, err := fmt.Fprintln(w, string(rec)); err != nil {
			return err
		}
	}
	return nil
}

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List topics and their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := api.ListTopics(nil, brokerAddr(cmd))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		},
	}
}

func brokerAddr(cmd *cobra.Command) string {
	addr, _ := cmd.Flags().GetString("broker")
	return addr
}

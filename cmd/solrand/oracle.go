package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/solrand/solrand-sdk-go/pkg/responder"
	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

func (a *app) oracleSession() (*solrand.OracleSession, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}
	return solrand.NewOracleSession(session), nil
}

func (a *app) publishCmd() *cobra.Command {
	var random string
	cmd := &cobra.Command{
		Use:   "publish <requester>",
		Short: "Answer a pending request as the oracle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("requester: %w", err)
			}

			var value *[solrand.RandomSize]byte
			if random != "" {
				raw, err := hex.DecodeString(random)
				if err != nil {
					return fmt.Errorf("random: %w", err)
				}
				if len(raw) != solrand.RandomSize {
					return fmt.Errorf("random must be %d bytes, got %d", solrand.RandomSize, len(raw))
				}
				value = new([solrand.RandomSize]byte)
				copy(value[:], raw)
			}

			oracle, err := a.oracleSession()
			if err != nil {
				return err
			}
			sig, err := oracle.PublishRandom(cmd.Context(), requester, value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&random, "random", "", "hex encoded 64-byte value (random by default)")
	return cmd
}

func (a *app) respondCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "respond",
		Short: "Run the oracle responder until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interval, err := a.cfg.ResponderInterval()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = a.cfg.Responder.MetricsAddr
			}

			oracle, err := a.oracleSession()
			if err != nil {
				return err
			}
			r := responder.New(oracle,
				responder.WithInterval(interval),
				responder.WithWorkers(a.cfg.Responder.Workers),
				responder.WithLogger(a.logger),
			)

			ctx := cmd.Context()
			if metricsAddr != "" {
				stop := a.serveMetrics(ctx, metricsAddr, r)
				defer stop()
			}
			return r.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address, empty disables (defaults to the configured address)")
	return cmd
}

// serveMetrics exposes the responder registry on /metrics. The returned
// function shuts the server down.
func (a *app) serveMetrics(ctx context.Context, addr string, r *responder.Responder) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/solrand/solrand-sdk-go/pkg/config"
	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

func (a *app) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the wallet balance in lamports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.session()
			if err != nil {
				return err
			}
			balance, err := session.GetBalance(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d\n", session.PublicKey(), balance)
			return nil
		},
	}
}

func (a *app) airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop [lamports]",
		Short: "Request an airdrop to the wallet (devnet, testnet, localhost)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports := solrand.DefaultAirdropLamports
			if len(args) == 1 {
				var err error
				if lamports, err = strconv.ParseUint(args[0], 10, 64); err != nil {
					return fmt.Errorf("lamports: %w", err)
				}
			}

			session, err := a.session()
			if err != nil {
				return err
			}
			sig, err := session.RequestAirdrop(cmd.Context(), lamports)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var (
		oracle    string
		authority string
		active    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requester accounts of the program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := solrand.RequestFilter{ActiveOnly: active}
			if oracle != "" {
				key, err := solana.PublicKeyFromBase58(oracle)
				if err != nil {
					return fmt.Errorf("oracle: %w", err)
				}
				filter.Oracle = &key
			}
			if authority != "" {
				key, err := solana.PublicKeyFromBase58(authority)
				if err != nil {
					return fmt.Errorf("authority: %w", err)
				}
				filter.Authority = &key
			}

			session, err := a.session()
			if err != nil {
				return err
			}
			requests, err := session.ListRequestAccounts(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tAUTHORITY\tORACLE\tCOUNT\tACTIVE")
			for _, req := range requests {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%t\n", req.Address, req.Authority, req.Oracle, req.Count, req.ActiveRequest)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&oracle, "oracle", "", "only requests addressed to this oracle")
	cmd.Flags().StringVar(&authority, "authority", "", "only requests owned by this authority")
	cmd.Flags().BoolVar(&active, "active", false, "only pending requests")
	return cmd
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <signature>",
		Short: "Print the oracle events emitted by a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := solana.SignatureFromBase58(args[0])
			if err != nil {
				return fmt.Errorf("signature: %w", err)
			}

			session, err := a.session()
			if err != nil {
				return err
			}
			events, err := session.TransactionEvents(cmd.Context(), sig)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ev.Kind, ev.Requester)
			}
			return nil
		},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "Write the default configuration to the config path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.WriteDefault(a.configPath); err != nil {
				return err
			}
			a.logger.Info().Str("path", a.configPath).Msg("config written")
			return nil
		},
	})
	return cmd
}

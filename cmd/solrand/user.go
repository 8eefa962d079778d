package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// userFlags select the requester account a user command acts on.
type userFlags struct {
	requestID uint64
	oracle    string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.requestID, "request-id", 0, "request id (generations that seed on it)")
	cmd.Flags().StringVar(&f.oracle, "oracle", "", "oracle public key (defaults to the configured oracle)")
}

func (a *app) userSession(f *userFlags) (*solrand.UserSession, error) {
	session, err := a.session()
	if err != nil {
		return nil, err
	}

	oracle, err := a.cfg.OracleKey()
	if err != nil {
		return nil, err
	}
	if f.oracle != "" {
		if oracle, err = solana.PublicKeyFromBase58(f.oracle); err != nil {
			return nil, fmt.Errorf("oracle: %w", err)
		}
	}

	user := solrand.NewUserSession(session, oracle, f.requestID)
	if err := user.SetAccounts(); err != nil {
		return nil, err
	}
	return user, nil
}

// userCmd builds a command that runs one mutation of the user's requester.
func (a *app) userCmd(use, short string, args cobra.PositionalArgs, run func(cmd *cobra.Command, user *solrand.UserSession, args []string) (solana.Signature, error)) *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userSession(&f)
			if err != nil {
				return err
			}
			sig, err := run(cmd, user, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) initCmd() *cobra.Command {
	return a.userCmd("init", "Create the requester account", cobra.NoArgs,
		func(cmd *cobra.Command, user *solrand.UserSession, _ []string) (solana.Signature, error) {
			return user.InitializeAccount(cmd.Context())
		})
}

func (a *app) requestCmd() *cobra.Command {
	return a.userCmd("request", "Request a random value from the oracle", cobra.NoArgs,
		func(cmd *cobra.Command, user *solrand.UserSession, _ []string) (solana.Signature, error) {
			return user.RequestRandom(cmd.Context())
		})
}

func (a *app) cancelCmd() *cobra.Command {
	return a.userCmd("cancel", "Close the requester account", cobra.NoArgs,
		func(cmd *cobra.Command, user *solrand.UserSession, _ []string) (solana.Signature, error) {
			return user.CancelAccount(cmd.Context())
		})
}

func (a *app) fundVaultCmd() *cobra.Command {
	return a.userCmd("fund-vault <lamports>", "Transfer lamports to the fee vault", cobra.ExactArgs(1),
		func(cmd *cobra.Command, user *solrand.UserSession, args []string) (solana.Signature, error) {
			lamports, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return solana.Signature{}, fmt.Errorf("lamports: %w", err)
			}
			return user.FundVault(cmd.Context(), lamports)
		})
}

func (a *app) transferAuthorityCmd() *cobra.Command {
	return a.userCmd("transfer-authority <pubkey>", "Hand the requester account to a new authority", cobra.ExactArgs(1),
		func(cmd *cobra.Command, user *solrand.UserSession, args []string) (solana.Signature, error) {
			newAuthority, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return solana.Signature{}, fmt.Errorf("new authority: %w", err)
			}
			return user.TransferAuthority(cmd.Context(), newAuthority)
		})
}

func (a *app) showCmd() *cobra.Command {
	var f userFlags
	cmd := &cobra.Command{
		Use:   "show [requester]",
		Short: "Show a requester account, by default the caller's own",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.userSession(&f)
			if err != nil {
				return err
			}

			addr, _, err := user.RequestAccount()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if addr, err = solana.PublicKeyFromBase58(args[0]); err != nil {
					return fmt.Errorf("requester: %w", err)
				}
			}

			acc, err := user.GetRequestAccount(cmd.Context(), addr)
			if err != nil {
				return err
			}
			printRequest(cmd.OutOrStdout(), acc)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func printRequest(w io.Writer, acc *solrand.RequestAccount) {
	fmt.Fprintf(w, "%-15s %s\n", "address", acc.Address)
	fmt.Fprintf(w, "%-15s %s\n", "authority", acc.Authority)
	fmt.Fprintf(w, "%-15s %s\n", "oracle", acc.Oracle)
	fmt.Fprintf(w, "%-15s %d\n", "count", acc.Count)
	fmt.Fprintf(w, "%-15s %t\n", "active", acc.ActiveRequest)
	fmt.Fprintf(w, "%-15s %d\n", "request id", acc.RequestID)
	fmt.Fprintf(w, "%-15s %s\n", "created", acc.CreatedTime().UTC())
	fmt.Fprintf(w, "%-15s %s\n", "updated", acc.LastUpdatedTime().UTC())
	fmt.Fprintf(w, "%-15s %s\n", "random", hex.EncodeToString(acc.Random[:]))
	fmt.Fprintf(w, "%-15s %s\n", "pkt id", hex.EncodeToString(acc.PktID[:]))
	fmt.Fprintf(w, "%-15s %s\n", "tls id", hex.EncodeToString(acc.TLSID[:]))
	fmt.Fprintf(w, "%-15s %d\n", "lamports", acc.Lamports)
}

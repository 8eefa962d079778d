package solrand

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// UserSession drives the requester side of the oracle: it owns one requester
// account (and its vault in vault generations) and submits requests to a
// single oracle.
type UserSession struct {
	*Session

	oracle    solana.PublicKey
	requestID uint64

	requestAccount solana.PublicKey
	requestBump    uint8
	vaultAccount   solana.PublicKey
	vaultBump      uint8
	accountsSet    bool
}

// NewUserSession creates a user session that sends requests to oracle. The
// request id only takes part in address derivation for generations that
// support it.
func NewUserSession(session *Session, oracle solana.PublicKey, requestID uint64) *UserSession {
	return &UserSession{
		Session:   session,
		oracle:    oracle,
		requestID: requestID,
	}
}

// Oracle returns the oracle requests are sent to.
func (u *UserSession) Oracle() solana.PublicKey { return u.oracle }

// RequestID returns the request id of the session.
func (u *UserSession) RequestID() uint64 { return u.requestID }

// SetAccounts derives the requester account and, in vault generations, the
// vault account. It does not touch the network.
func (u *UserSession) SetAccounts() error {
	addr, bump, err := DeriveRequestAccount(u.generation, u.programID, u.PublicKey(), u.requestID)
	if err != nil {
		return fmt.Errorf("derive requester: %w", err)
	}
	u.requestAccount, u.requestBump = addr, bump

	if u.generation.Vault {
		vault, vaultBump, err := DeriveVaultAccount(u.programID, u.PublicKey())
		if err != nil {
			return fmt.Errorf("derive vault: %w", err)
		}
		u.vaultAccount, u.vaultBump = vault, vaultBump
	}
	u.accountsSet = true
	u.logger.Debug().
		Stringer("requester", u.requestAccount).
		Uint64("requestID", u.requestID).
		Msg("accounts derived")
	return nil
}

// RequestAccount returns the derived requester address and bump.
func (u *UserSession) RequestAccount() (solana.PublicKey, uint8, error) {
	if !u.accountsSet {
		return solana.PublicKey{}, 0, ErrAccountsNotSet
	}
	return u.requestAccount, u.requestBump, nil
}

// VaultAccount returns the derived vault address and bump.
func (u *UserSession) VaultAccount() (solana.PublicKey, uint8, error) {
	if !u.generation.Vault {
		return solana.PublicKey{}, 0, ErrNoVault
	}
	if !u.accountsSet {
		return solana.PublicKey{}, 0, ErrAccountsNotSet
	}
	return u.vaultAccount, u.vaultBump, nil
}

// InitializeAccount creates the requester account bound to the session oracle.
func (u *UserSession) InitializeAccount(ctx context.Context) (solana.Signature, error) {
	if !u.accountsSet {
		return solana.Signature{}, ErrAccountsNotSet
	}
	ix, err := NewInitializeInstruction(u.generation, u.programID, InitializeArgs{
		RequestBump: u.requestBump,
		VaultBump:   u.vaultBump,
		RequestID:   u.requestID,
	}, InitializeAccounts{
		Requester: u.requestAccount,
		Vault:     u.vaultAccount,
		Authority: u.PublicKey(),
		Oracle:    u.oracle,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("initialize: %w", err)
	}
	sig, err := u.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("initialize: %w", err)
	}
	u.logger.Info().Stringer("requester", u.requestAccount).Stringer("signature", sig).Msg("requester initialized")
	return sig, nil
}

// RequestRandom submits a randomness request. The program charges the oracle
// fee and marks the request active.
func (u *UserSession) RequestRandom(ctx context.Context) (solana.Signature, error) {
	if !u.accountsSet {
		return solana.Signature{}, ErrAccountsNotSet
	}
	ix := NewRequestRandomInstruction(u.generation, u.programID, RequestRandomAccounts{
		Requester: u.requestAccount,
		Vault:     u.vaultAccount,
		Authority: u.PublicKey(),
		Oracle:    u.oracle,
	})
	sig, err := u.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("request random: %w", err)
	}
	u.logger.Info().Stringer("requester", u.requestAccount).Stringer("signature", sig).Msg("random requested")
	return sig, nil
}

// CancelAccount closes the requester account and returns its rent to the
// authority. The program rejects it while a request is pending.
func (u *UserSession) CancelAccount(ctx context.Context) (solana.Signature, error) {
	if !u.accountsSet {
		return solana.Signature{}, ErrAccountsNotSet
	}
	ix := NewCancelInstruction(u.programID, u.requestAccount, u.PublicKey())
	sig, err := u.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("cancel: %w", err)
	}
	u.logger.Info().Stringer("requester", u.requestAccount).Stringer("signature", sig).Msg("requester cancelled")
	return sig, nil
}

// FundVault transfers lamports from the authority into the vault that pays
// the oracle fee.
func (u *UserSession) FundVault(ctx context.Context, lamports uint64) (solana.Signature, error) {
	vault, _, err := u.VaultAccount()
	if err != nil {
		return solana.Signature{}, err
	}
	sig, err := u.Transfer(ctx, vault, lamports)
	if err != nil {
		return sig, fmt.Errorf("fund vault: %w", err)
	}
	return sig, nil
}

// TransferAuthority hands the requester over to newAuthority. The requester
// address does not change.
func (u *UserSession) TransferAuthority(ctx context.Context, newAuthority solana.PublicKey) (solana.Signature, error) {
	if !u.accountsSet {
		return solana.Signature{}, ErrAccountsNotSet
	}
	ix := NewTransferAuthorityInstruction(u.programID, u.requestAccount, u.PublicKey(), newAuthority)
	sig, err := u.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("transfer authority: %w", err)
	}
	return sig, nil
}

// Account fetches the current state of the session's requester account.
func (u *UserSession) Account(ctx context.Context) (*RequestAccount, error) {
	if !u.accountsSet {
		return nil, ErrAccountsNotSet
	}
	return u.GetRequestAccount(ctx, u.requestAccount)
}

// Vault fetches the session's vault account.
func (u *UserSession) Vault(ctx context.Context) (*VaultAccount, error) {
	vault, _, err := u.VaultAccount()
	if err != nil {
		return nil, err
	}
	return u.GetVaultAccount(ctx, vault)
}

package solrand

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// fetchAccount fetches raw account info, mapping a missing account to
// ErrAccountNotFound.
func (s *Session) fetchAccount(ctx context.Context, addr solana.PublicKey) (*solanarpc.Account, error) {
	resp, err := s.rpc.GetAccountInfoWithOpts(ctx, addr, &solanarpc.GetAccountInfoOpts{
		Commitment: s.commitment,
	})
	if errors.Is(err, solanarpc.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return resp.Value, nil
}

// GetRequestAccount fetches and decodes a requester account.
func (s *Session) GetRequestAccount(ctx context.Context, addr solana.PublicKey) (*RequestAccount, error) {
	acct, err := s.fetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if !acct.Owner.Equals(s.programID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrInvalidAccountData, addr, acct.Owner)
	}
	req, err := ParseRequestAccount(acct.Data.GetBinary(), s.generation)
	if err != nil {
		return nil, fmt.Errorf("decode requester %s: %w", addr, err)
	}
	req.Address = addr
	req.Lamports = acct.Lamports
	return req, nil
}

// GetVaultAccount fetches and decodes a vault account.
func (s *Session) GetVaultAccount(ctx context.Context, addr solana.PublicKey) (*VaultAccount, error) {
	acct, err := s.fetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	vault, err := ParseVaultAccount(acct.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode vault %s: %w", addr, err)
	}
	vault.Address = addr
	vault.Lamports = acct.Lamports
	return vault, nil
}

// GetAccountBalance returns the lamports held by any account, zero if it
// does not exist.
func (s *Session) GetAccountBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := s.rpc.GetBalance(ctx, addr, s.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance of %s: %w", addr, err)
	}
	return out.Value, nil
}

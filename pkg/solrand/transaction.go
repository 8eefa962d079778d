package solrand

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// sendAndConfirm builds a transaction paid and signed by the session signer,
// submits it with preflight at the session commitment and blocks until the
// cluster reports the commitment or a failure. Program errors returned by the
// preflight simulation are decoded into *ProgramError.
func (s *Session) sendAndConfirm(ctx context.Context, instructions ...solana.Instruction) (solana.Signature, error) {
	recent, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if recent == nil || recent.Value == nil {
		return solana.Signature{}, errors.New("get latest blockhash: empty result")
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(s.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	signer := s.PublicKey()
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer) {
			return &s.signer
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return solana.Signature{}, s.decodeError(err)
	}
	s.logger.Debug().Stringer("signature", sig).Int("instructions", len(instructions)).Msg("transaction sent")

	if err := s.confirm(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

// confirm polls the signature status until it reaches the session
// commitment, fails, or ctx ends.
func (s *Session) confirm(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil && !errors.Is(err, solanarpc.ErrNotFound) {
			return fmt.Errorf("get signature status %s: %w", sig, err)
		}
		if out != nil && len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, status.Err)
			}
			if reachedCommitment(status.ConfirmationStatus, s.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrConfirmTimeout, sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func reachedCommitment(status solanarpc.ConfirmationStatusType, want solanarpc.CommitmentType) bool {
	rank := func(c string) int {
		switch c {
		case string(solanarpc.CommitmentProcessed):
			return 1
		case string(solanarpc.CommitmentConfirmed):
			return 2
		case string(solanarpc.CommitmentFinalized):
			return 3
		}
		return 0
	}
	got := rank(string(status))
	return got > 0 && got >= rank(string(want))
}

package solrand

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Session holds one identity, its RPC connection and the program it talks to.
// UserSession and OracleSession embed it for the shared balance, funding and
// query operations.
type Session struct {
	rpc          RPCClient
	signer       solana.PrivateKey
	generation   Generation
	programID    solana.PublicKey
	commitment   solanarpc.CommitmentType
	pollInterval time.Duration
	random       io.Reader
	randomMu     sync.Mutex
	logger       zerolog.Logger
}

// NewSession creates a session signing with signer. Customize via functional
// options; by default it targets DefaultGeneration at confirmed commitment.
func NewSession(rpc RPCClient, signer solana.PrivateKey, opts ...Option) *Session {
	s := &Session{
		rpc:          rpc,
		signer:       signer,
		generation:   DefaultGeneration,
		programID:    DefaultGeneration.ProgramID,
		commitment:   solanarpc.CommitmentConfirmed,
		pollInterval: 500 * time.Millisecond,
		random:       rand.Reader,
		logger:       log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Stringer("session", s.PublicKey()).Logger()
	return s
}

// PublicKey returns the public key of the session signer.
func (s *Session) PublicKey() solana.PublicKey { return s.signer.PublicKey() }

// ProgramID returns the configured oracle program ID.
func (s *Session) ProgramID() solana.PublicKey { return s.programID }

// Generation returns the configured program generation.
func (s *Session) Generation() Generation { return s.generation }

// Commitment returns the configured commitment level for RPC queries.
func (s *Session) Commitment() solanarpc.CommitmentType { return s.commitment }

// Logger returns the logger used by the session.
func (s *Session) Logger() zerolog.Logger { return s.logger }

// GetBalance returns the lamport balance of the session signer.
func (s *Session) GetBalance(ctx context.Context) (uint64, error) {
	out, err := s.rpc.GetBalance(ctx, s.PublicKey(), s.commitment)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return out.Value, nil
}

// RequestAirdrop asks the cluster faucet for lamports and waits until the
// funding transaction reaches the session commitment. Only test and dev
// clusters allow it.
func (s *Session) RequestAirdrop(ctx context.Context, lamports uint64) (solana.Signature, error) {
	sig, err := s.rpc.RequestAirdrop(ctx, s.PublicKey(), lamports, s.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("request airdrop: %w", err)
	}
	if err := s.confirm(ctx, sig); err != nil {
		return sig, fmt.Errorf("request airdrop: %w", err)
	}
	s.logger.Debug().Uint64("lamports", lamports).Stringer("signature", sig).Msg("airdrop confirmed")
	return sig, nil
}

// readRandom fills each buffer from the session random source. Concurrent
// callers are serialized, so each one receives a contiguous run of bytes.
func (s *Session) readRandom(bufs ...[]byte) error {
	s.randomMu.Lock()
	defer s.randomMu.Unlock()
	for _, buf := range bufs {
		if _, err := io.ReadFull(s.random, buf); err != nil {
			return err
		}
	}
	return nil
}

// Transfer moves lamports from the session signer to another account.
func (s *Session) Transfer(ctx context.Context, to solana.PublicKey, lamports uint64) (solana.Signature, error) {
	ix := system.NewTransferInstruction(lamports, s.PublicKey(), to).Build()
	sig, err := s.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("transfer: %w", err)
	}
	return sig, nil
}

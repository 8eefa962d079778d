package solrand

import (
	"io"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
)

// Option configures a Session.
type Option func(*Session)

// WithGeneration selects the program generation. It also sets the program ID
// unless WithProgramID overrides it afterwards.
func WithGeneration(gen Generation) Option {
	return func(s *Session) {
		s.generation = gen
		s.programID = gen.ProgramID
	}
}

// WithProgramID overrides the program ID, e.g. for a local deployment.
func WithProgramID(programID solana.PublicKey) Option {
	return func(s *Session) { s.programID = programID }
}

// WithCommitment sets the commitment used for queries and confirmations.
func WithCommitment(commitment solanarpc.CommitmentType) Option {
	return func(s *Session) { s.commitment = commitment }
}

// WithLogger sets a custom logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithConfirmPollInterval sets how often signature statuses are polled while
// waiting for a transaction to reach the session commitment. Non-positive
// values are ignored.
func WithConfirmPollInterval(interval time.Duration) Option {
	return func(s *Session) {
		if interval > 0 {
			s.pollInterval = interval
		}
	}
}

// WithRandomSource sets the reader used for oracle random values and ids.
func WithRandomSource(r io.Reader) Option {
	return func(s *Session) { s.random = r }
}

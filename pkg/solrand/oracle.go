package solrand

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// OracleSession answers randomness requests addressed to its key.
type OracleSession struct {
	*Session
}

// NewOracleSession creates an oracle session signing with the session key.
func NewOracleSession(session *Session) *OracleSession {
	return &OracleSession{Session: session}
}

// PublishRandom writes a random value into requester and completes its
// pending request. A nil random draws 64 bytes from the session's random
// source; the packet and TLS ids are always drawn from it. It is safe to call
// from several goroutines sharing one session.
func (o *OracleSession) PublishRandom(ctx context.Context, requester solana.PublicKey, random *[RandomSize]byte) (solana.Signature, error) {
	var args PublishRandomArgs
	bufs := [][]byte{args.PktID[:], args.TLSID[:]}
	if random != nil {
		args.Random = *random
	} else {
		bufs = append([][]byte{args.Random[:]}, bufs...)
	}
	if err := o.readRandom(bufs...); err != nil {
		return solana.Signature{}, fmt.Errorf("read random values: %w", err)
	}

	ix, err := NewPublishRandomInstruction(o.generation, o.programID, args, o.PublicKey(), requester)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("publish random: %w", err)
	}
	sig, err := o.sendAndConfirm(ctx, ix)
	if err != nil {
		return sig, fmt.Errorf("publish random: %w", err)
	}
	o.logger.Info().Stringer("requester", requester).Stringer("signature", sig).Msg("random published")
	return sig, nil
}

// PendingRequests lists requesters bound to this oracle with an active
// request.
func (o *OracleSession) PendingRequests(ctx context.Context) ([]RequestAccount, error) {
	oracle := o.PublicKey()
	return o.ListRequestAccounts(ctx, RequestFilter{
		Oracle:     &oracle,
		ActiveOnly: true,
	})
}

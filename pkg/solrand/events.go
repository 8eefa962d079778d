package solrand

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// EventKind identifies an event emitted by the oracle program.
type EventKind string

const (
	EventRandomRequested EventKind = "RandomRequested"
	EventRandomPublished EventKind = "RandomPublished"
)

// Anchor event discriminators.
var (
	RandomRequestedDiscriminator = eventID(EventRandomRequested)
	RandomPublishedDiscriminator = eventID(EventRandomPublished)
)

func eventID(kind EventKind) bin.TypeID {
	return bin.SighashTypeID("event", string(kind))
}

// Event is a decoded program event.
type Event struct {
	Kind      EventKind
	Requester solana.PublicKey
}

const programDataPrefix = "Program data: "

// ParseEvents decodes the oracle program events found in transaction logs.
// Lines that are not program data or carry other events are skipped.
func ParseEvents(logs []string) []Event {
	var events []Event
	for _, line := range logs {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, programDataPrefix))
		if err != nil || len(raw) < DiscriminatorSize+32 {
			continue
		}

		var kind EventKind
		switch {
		case bytes.Equal(raw[:DiscriminatorSize], RandomRequestedDiscriminator[:]):
			kind = EventRandomRequested
		case bytes.Equal(raw[:DiscriminatorSize], RandomPublishedDiscriminator[:]):
			kind = EventRandomPublished
		default:
			continue
		}

		var requester solana.PublicKey
		if err := bin.NewBorshDecoder(raw[DiscriminatorSize:]).Decode(&requester); err != nil {
			continue
		}
		events = append(events, Event{Kind: kind, Requester: requester})
	}
	return events
}

// EncodeEvent renders an event the way the program logs it.
func EncodeEvent(ev Event) string {
	disc := eventID(ev.Kind)
	raw := append(disc[:], ev.Requester.Bytes()...)
	return programDataPrefix + base64.StdEncoding.EncodeToString(raw)
}

// TransactionEvents fetches a confirmed transaction and decodes its events.
func (s *Session) TransactionEvents(ctx context.Context, sig solana.Signature) ([]Event, error) {
	tx, err := s.rpc.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
		Commitment: s.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", sig, err)
	}
	if tx == nil || tx.Meta == nil {
		return nil, fmt.Errorf("get transaction %s: no metadata", sig)
	}
	return ParseEvents(tx.Meta.LogMessages), nil
}

package solrand

import (
	"crypto/sha256"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDiscriminators(t *testing.T) {
	sum := sha256.Sum256([]byte("event:RandomRequested"))
	assert.Equal(t, sum[:8], RandomRequestedDiscriminator[:])

	sum = sha256.Sum256([]byte("event:RandomPublished"))
	assert.Equal(t, sum[:8], RandomPublishedDiscriminator[:])
}

func TestParseEvents(t *testing.T) {
	requester := solana.NewWallet().PublicKey()
	logs := []string{
		"Program " + GenerationV3.ProgramID.String() + " invoke [1]",
		"Program log: Instruction: RequestRandom",
		EncodeEvent(Event{Kind: EventRandomRequested, Requester: requester}),
		"Program data: not-base64!",
		"Program data: AAAA",
		EncodeEvent(Event{Kind: EventRandomPublished, Requester: requester}),
		"Program " + GenerationV3.ProgramID.String() + " success",
	}

	events := ParseEvents(logs)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventRandomRequested, Requester: requester}, events[0])
	assert.Equal(t, Event{Kind: EventRandomPublished, Requester: requester}, events[1])
}

func TestParseEventsIgnoresForeignEvents(t *testing.T) {
	foreign := EncodeEvent(Event{Kind: EventKind("SwapEvent"), Requester: solana.NewWallet().PublicKey()})
	assert.Empty(t, ParseEvents([]string{foreign}))
	assert.Empty(t, ParseEvents(nil))
}

package solrand

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
)

func TestReachedCommitment(t *testing.T) {
	cases := []struct {
		status solanarpc.ConfirmationStatusType
		want   solanarpc.CommitmentType
		ok     bool
	}{
		{solanarpc.ConfirmationStatusProcessed, solanarpc.CommitmentProcessed, true},
		{solanarpc.ConfirmationStatusProcessed, solanarpc.CommitmentConfirmed, false},
		{solanarpc.ConfirmationStatusConfirmed, solanarpc.CommitmentConfirmed, true},
		{solanarpc.ConfirmationStatusConfirmed, solanarpc.CommitmentFinalized, false},
		{solanarpc.ConfirmationStatusFinalized, solanarpc.CommitmentConfirmed, true},
		{"", solanarpc.CommitmentProcessed, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, reachedCommitment(tc.status, tc.want), "%s >= %s", tc.status, tc.want)
	}
}

func TestGenerationByName(t *testing.T) {
	gen, err := GenerationByName("v2")
	assert.NoError(t, err)
	assert.Equal(t, GenerationV2, gen)
	assert.True(t, gen.PublishRemainingAccount)

	_, err = GenerationByName("v9")
	assert.Error(t, err)
	assert.Equal(t, GenerationV3, DefaultGeneration)
}

func TestConfirmPollIntervalIgnoresNonPositive(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	s := NewSession(nil, key, WithConfirmPollInterval(0), WithConfirmPollInterval(-time.Second))
	assert.Equal(t, 500*time.Millisecond, s.pollInterval)

	s = NewSession(nil, key, WithConfirmPollInterval(10*time.Millisecond))
	assert.Equal(t, 10*time.Millisecond, s.pollInterval)
}

package solrand

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSeeds(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	seeds := RequestSeeds(GenerationV1, authority, 9)
	require.Len(t, seeds, 2)
	assert.Equal(t, []byte("r-seed"), seeds[0])
	assert.Equal(t, authority.Bytes(), seeds[1])

	seeds = RequestSeeds(GenerationV3, authority, 9)
	require.Len(t, seeds, 3)
	assert.Equal(t, uint64(9), binary.LittleEndian.Uint64(seeds[2]))
}

func TestDeriveRequestAccount(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	a, bumpA, err := DeriveRequestAccount(GenerationV3, GenerationV3.ProgramID, authority, 1)
	require.NoError(t, err)
	b, _, err := DeriveRequestAccount(GenerationV3, GenerationV3.ProgramID, authority, 2)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "request ids must yield distinct requesters")

	again, bumpAgain, err := DeriveRequestAccount(GenerationV3, GenerationV3.ProgramID, authority, 1)
	require.NoError(t, err)
	assert.Equal(t, a, again)
	assert.Equal(t, bumpA, bumpAgain)

	want, wantBump, err := solana.FindProgramAddress(
		[][]byte{[]byte(RequestSeed), authority.Bytes(), {1, 0, 0, 0, 0, 0, 0, 0}},
		GenerationV3.ProgramID,
	)
	require.NoError(t, err)
	assert.Equal(t, want, a)
	assert.Equal(t, wantBump, bumpA)
}

func TestDeriveRequestAccountIgnoresIDWithoutSeed(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	a, _, err := DeriveRequestAccount(GenerationV1, GenerationV1.ProgramID, authority, 1)
	require.NoError(t, err)
	b, _, err := DeriveRequestAccount(GenerationV1, GenerationV1.ProgramID, authority, 2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeriveVaultAccount(t *testing.T) {
	authority := solana.NewWallet().PublicKey()

	vault, _, err := DeriveVaultAccount(GenerationV2.ProgramID, authority)
	require.NoError(t, err)
	requester, _, err := DeriveRequestAccount(GenerationV2, GenerationV2.ProgramID, authority, 0)
	require.NoError(t, err)
	assert.NotEqual(t, requester, vault)

	other, _, err := DeriveVaultAccount(GenerationV1.ProgramID, authority)
	require.NoError(t, err)
	assert.NotEqual(t, vault, other, "vaults are program specific")
}

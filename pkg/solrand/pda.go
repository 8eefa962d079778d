package solrand

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// RequestSeeds returns the seeds of the requester PDA for authority. The
// request id is only part of the seeds in generations that support it.
func RequestSeeds(gen Generation, authority solana.PublicKey, requestID uint64) [][]byte {
	seeds := [][]byte{
		[]byte(RequestSeed),
		authority.Bytes(),
	}
	if gen.RequestIDSeed {
		idLE := make([]byte, 8)
		binary.LittleEndian.PutUint64(idLE, requestID)
		seeds = append(seeds, idLE)
	}
	return seeds
}

// DeriveRequestAccount derives the requester PDA and its bump.
func DeriveRequestAccount(gen Generation, programID, authority solana.PublicKey, requestID uint64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(RequestSeeds(gen, authority, requestID), programID)
}

// DeriveVaultAccount derives the vault PDA and its bump.
func DeriveVaultAccount(programID, authority solana.PublicKey) (solana.PublicKey, uint8, error) {
	seed := [][]byte{
		[]byte(VaultSeed),
		authority.Bytes(),
	}
	return solana.FindProgramAddress(seed, programID)
}

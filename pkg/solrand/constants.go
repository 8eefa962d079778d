package solrand

import (
	"github.com/gagliardetto/solana-go"
)

// Network represents a Solana cluster name used by the solrand SDK.
type Network string

const (
	NetworkMainnet Network = "mainnet-beta"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
	NetworkLocal   Network = "localhost"
)

// RPCEndpoints maps network to its default JSON-RPC endpoint.
var RPCEndpoints = map[Network]string{
	NetworkMainnet: "https://api.mainnet-beta.solana.com",
	NetworkTestnet: "https://api.testnet.solana.com",
	NetworkDevnet:  "https://api.devnet.solana.com",
	NetworkLocal:   "http://localhost:8899",
}

var (
	SystemProgramAccount = solana.SystemProgramID
	RentSysvarAccount    = solana.SysVarRentPubkey
)

// OracleDevnet is the oracle operated for the deployed programs.
var OracleDevnet = solana.MustPublicKeyFromBase58("qkyoiJyAtt7dzaUTsiQYYyGRrnJL3AE1mP93bmFXpY8")

// Seeds used by the program to derive its accounts.
const (
	RequestSeed = "r-seed"
	VaultSeed   = "v-seed"
)

// Lamport amounts published by the program and the cluster.
const (
	OracleFeeLamports      uint64 = 495_000
	SignatureFeeLamports   uint64 = 5_000
	DefaultAirdropLamports uint64 = 1_000_000_000
	LamportsPerSol         uint64 = 1_000_000_000
)

// Requester account layout. Offsets include the 8-byte discriminator.
const (
	DiscriminatorSize = 8

	authorityOffset     = DiscriminatorSize
	oracleOffset        = authorityOffset + 32
	activeRequestOffset = oracleOffset + 32 + 8 + 8 + 8 + 64 + 32 + 32

	RandomSize = 64
	PktIDSize  = 32
	TLSIDSize  = 32
)

package solrand

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Anchor instruction discriminators.
var (
	InitializeDiscriminator        = instructionID("initialize")
	RequestRandomDiscriminator     = instructionID("request_random")
	PublishRandomDiscriminator     = instructionID("publish_random")
	CancelDiscriminator            = instructionID("cancel")
	TransferAuthorityDiscriminator = instructionID("transfer_authority")
)

func instructionID(name string) bin.TypeID {
	return bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, name)
}

// InitializeArgs are the arguments of the initialize instruction.
type InitializeArgs struct {
	RequestBump uint8
	VaultBump   uint8
	RequestID   uint64
}

// InitializeAccounts are the accounts of the initialize instruction.
type InitializeAccounts struct {
	Requester solana.PublicKey
	Vault     solana.PublicKey
	Authority solana.PublicKey
	Oracle    solana.PublicKey
}

// NewInitializeInstruction builds initialize for gen.
func NewInitializeInstruction(gen Generation, programID solana.PublicKey, args InitializeArgs, accs InitializeAccounts) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	buf.Write(InitializeDiscriminator[:])
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(args.RequestBump); err != nil {
		return nil, err
	}
	if gen.Vault {
		if err := enc.WriteUint8(args.VaultBump); err != nil {
			return nil, err
		}
	}
	if gen.RequestIDSeed {
		if err := enc.WriteUint64(args.RequestID, binary.LittleEndian); err != nil {
			return nil, err
		}
	}

	metas := solana.AccountMetaSlice{solana.Meta(accs.Requester).WRITE()}
	if gen.Vault {
		metas.Append(solana.Meta(accs.Vault).WRITE())
	}
	metas.Append(solana.Meta(accs.Authority).WRITE().SIGNER())
	metas.Append(solana.Meta(accs.Oracle))
	metas.Append(solana.Meta(RentSysvarAccount))
	metas.Append(solana.Meta(SystemProgramAccount))

	return solana.NewInstruction(programID, metas, buf.Bytes()), nil
}

// RequestRandomAccounts are the accounts of the request_random instruction.
type RequestRandomAccounts struct {
	Requester solana.PublicKey
	Vault     solana.PublicKey
	Authority solana.PublicKey
	Oracle    solana.PublicKey
}

// NewRequestRandomInstruction builds request_random for gen.
func NewRequestRandomInstruction(gen Generation, programID solana.PublicKey, accs RequestRandomAccounts) solana.Instruction {
	metas := solana.AccountMetaSlice{solana.Meta(accs.Requester).WRITE()}
	if gen.Vault {
		metas.Append(solana.Meta(accs.Vault).WRITE())
	}
	metas.Append(solana.Meta(accs.Authority).WRITE().SIGNER())
	metas.Append(solana.Meta(accs.Oracle).WRITE())
	metas.Append(solana.Meta(SystemProgramAccount))

	return solana.NewInstruction(programID, metas, RequestRandomDiscriminator[:])
}

// PublishRandomArgs are the arguments of the publish_random instruction.
type PublishRandomArgs struct {
	Random [RandomSize]byte
	PktID  [PktIDSize]byte
	TLSID  [TLSIDSize]byte
}

// NewPublishRandomInstruction builds publish_random for gen.
func NewPublishRandomInstruction(gen Generation, programID solana.PublicKey, args PublishRandomArgs, oracle, requester solana.PublicKey) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	buf.Write(PublishRandomDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(&args); err != nil {
		return nil, fmt.Errorf("encode publish_random args: %w", err)
	}

	var metas solana.AccountMetaSlice
	if gen.PublishRemainingAccount {
		metas = solana.AccountMetaSlice{
			solana.Meta(oracle).SIGNER(),
			solana.Meta(SystemProgramAccount),
			solana.Meta(requester).WRITE(),
		}
	} else {
		metas = solana.AccountMetaSlice{
			solana.Meta(requester).WRITE(),
			solana.Meta(oracle).SIGNER(),
			solana.Meta(SystemProgramAccount),
		}
	}
	return solana.NewInstruction(programID, metas, buf.Bytes()), nil
}

// NewCancelInstruction builds cancel. The requester rent is returned to the
// authority.
func NewCancelInstruction(programID, requester, authority solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(requester).WRITE(),
		solana.Meta(authority).WRITE().SIGNER(),
		solana.Meta(SystemProgramAccount),
	}
	return solana.NewInstruction(programID, metas, CancelDiscriminator[:])
}

// NewTransferAuthorityInstruction builds transfer_authority.
func NewTransferAuthorityInstruction(programID, requester, authority, newAuthority solana.PublicKey) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.Meta(requester).WRITE(),
		solana.Meta(authority).WRITE().SIGNER(),
		solana.Meta(newAuthority).WRITE(),
		solana.Meta(SystemProgramAccount),
	}
	return solana.NewInstruction(programID, metas, TransferAuthorityDiscriminator[:])
}

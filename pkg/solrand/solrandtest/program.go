package solrandtest

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// Framework errors of the Anchor release the deployed programs were built
// with.
const (
	anchorInstructionMissing           uint32 = 100
	anchorInstructionFallbackNotFound  uint32 = 101
	anchorInstructionDidNotDeserialize uint32 = 102
	anchorConstraintMut                uint32 = 140
	anchorConstraintSigner             uint32 = 142
	anchorConstraintSeeds              uint32 = 146
	anchorAccountDiscriminatorMismatch uint32 = 162
	anchorAccountNotEnoughKeys         uint32 = 165
	anchorAccountNotProgramOwned       uint32 = 167
)

// oracleProgram executes one instruction of a hosted program generation.
type oracleProgram struct {
	id  solana.PublicKey
	gen solrand.Generation
	ex  *execution
}

func (p *oracleProgram) process(metas []*solana.AccountMeta, data []byte) *instructionError {
	if len(data) < solrand.DiscriminatorSize {
		return customError(anchorInstructionMissing)
	}
	var disc bin.TypeID
	copy(disc[:], data[:solrand.DiscriminatorSize])
	args := data[solrand.DiscriminatorSize:]

	switch disc {
	case solrand.InitializeDiscriminator:
		p.ex.log("Program log: Instruction: Initialize")
		return p.initialize(metas, args)
	case solrand.RequestRandomDiscriminator:
		p.ex.log("Program log: Instruction: RequestRandom")
		return p.requestRandom(metas)
	case solrand.PublishRandomDiscriminator:
		p.ex.log("Program log: Instruction: PublishRandom")
		return p.publishRandom(metas, args)
	case solrand.TransferAuthorityDiscriminator:
		p.ex.log("Program log: Instruction: TransferAuthority")
		return p.transferAuthority(metas)
	case solrand.CancelDiscriminator:
		if p.gen.Cancel {
			p.ex.log("Program log: Instruction: Cancel")
			return p.cancel(metas)
		}
	}
	return customError(anchorInstructionFallbackNotFound)
}

func (p *oracleProgram) fail(kind solrand.ProgramErrorKind) *instructionError {
	code := p.gen.Code(kind)
	p.ex.log("Program log: Custom program error: 0x%x", code)
	return customError(code)
}

func (p *oracleProgram) loadRequester(meta *solana.AccountMeta) (*solrand.RequestAccount, *instructionError) {
	if !meta.IsWritable {
		return nil, customError(anchorConstraintMut)
	}
	acc := p.ex.get(meta.PublicKey)
	if acc == nil || !acc.Owner.Equals(p.id) {
		return nil, customError(anchorAccountNotProgramOwned)
	}
	req, err := solrand.ParseRequestAccount(acc.Data, p.gen)
	if err != nil {
		return nil, customError(anchorAccountDiscriminatorMismatch)
	}
	req.Address = meta.PublicKey
	return req, nil
}

func (p *oracleProgram) storeRequester(req *solrand.RequestAccount) *instructionError {
	data, err := solrand.EncodeRequestAccount(req, p.gen)
	if err != nil {
		return builtinError("AccountDataTooSmall", "account data too small for instruction")
	}
	p.ex.get(req.Address).Data = data
	return nil
}

func (p *oracleProgram) loadVault(meta *solana.AccountMeta) (*solrand.VaultAccount, *instructionError) {
	acc := p.ex.get(meta.PublicKey)
	if acc == nil || !acc.Owner.Equals(p.id) {
		return nil, customError(anchorAccountNotProgramOwned)
	}
	vault, err := solrand.ParseVaultAccount(acc.Data)
	if err != nil {
		return nil, customError(anchorAccountDiscriminatorMismatch)
	}
	vault.Address = meta.PublicKey
	vault.Lamports = acc.Lamports
	return vault, nil
}

// accounts splits metas into the named accounts of an instruction, with an
// optional vault in vault generations.
func (p *oracleProgram) accounts(metas []*solana.AccountMeta, named int, vaultAt int) ([]*solana.AccountMeta, *solana.AccountMeta, *instructionError) {
	want := named
	if p.gen.Vault && vaultAt >= 0 {
		want++
	}
	if len(metas) < want {
		return nil, nil, customError(anchorAccountNotEnoughKeys)
	}
	if !p.gen.Vault || vaultAt < 0 {
		return metas[:named], nil, nil
	}
	out := make([]*solana.AccountMeta, 0, named)
	out = append(out, metas[:vaultAt]...)
	out = append(out, metas[vaultAt+1:want]...)
	return out, metas[vaultAt], nil
}

func (p *oracleProgram) initialize(metas []*solana.AccountMeta, args []byte) *instructionError {
	named, vaultMeta, ixErr := p.accounts(metas, 5, 1)
	if ixErr != nil {
		return ixErr
	}
	requester, authority, oracle := named[0], named[1], named[2]
	if !authority.IsSigner {
		return customError(anchorConstraintSigner)
	}

	dec := bin.NewBorshDecoder(args)
	bump, err := dec.ReadUint8()
	if err != nil {
		return customError(anchorInstructionDidNotDeserialize)
	}
	var vaultBump uint8
	if p.gen.Vault {
		if vaultBump, err = dec.ReadUint8(); err != nil {
			return customError(anchorInstructionDidNotDeserialize)
		}
	}
	var requestID uint64
	if p.gen.RequestIDSeed {
		if requestID, err = dec.ReadUint64(bin.LE); err != nil {
			return customError(anchorInstructionDidNotDeserialize)
		}
	}

	addr, wantBump, err := solrand.DeriveRequestAccount(p.gen, p.id, authority.PublicKey, requestID)
	if err != nil || !addr.Equals(requester.PublicKey) || wantBump != bump {
		return customError(anchorConstraintSeeds)
	}

	req := &solrand.RequestAccount{
		Address:     requester.PublicKey,
		Authority:   authority.PublicKey,
		Oracle:      oracle.PublicKey,
		CreatedAt:   p.ex.now,
		LastUpdated: p.ex.now,
		RequestID:   requestID,
		Bump:        bump,
	}
	data, err := solrand.EncodeRequestAccount(req, p.gen)
	if err != nil {
		return builtinError("InvalidAccountData", "invalid account data for instruction")
	}
	if ixErr := p.ex.create(authority.PublicKey, requester.PublicKey, p.id, data); ixErr != nil {
		return ixErr
	}

	if p.gen.Vault {
		vaultAddr, wantVaultBump, err := solrand.DeriveVaultAccount(p.id, authority.PublicKey)
		if err != nil || !vaultAddr.Equals(vaultMeta.PublicKey) || wantVaultBump != vaultBump {
			return customError(anchorConstraintSeeds)
		}
		vault := solrand.EncodeVaultAccount(&solrand.VaultAccount{Requester: requester.PublicKey, Bump: vaultBump})
		if ixErr := p.ex.create(authority.PublicKey, vaultAddr, p.id, vault); ixErr != nil {
			return ixErr
		}
	}
	return nil
}

func (p *oracleProgram) requestRandom(metas []*solana.AccountMeta) *instructionError {
	named, vaultMeta, ixErr := p.accounts(metas, 4, 1)
	if ixErr != nil {
		return ixErr
	}
	requesterMeta, authority, oracle := named[0], named[1], named[2]
	if !authority.IsSigner {
		return customError(anchorConstraintSigner)
	}
	req, ixErr := p.loadRequester(requesterMeta)
	if ixErr != nil {
		return ixErr
	}

	var vault *solrand.VaultAccount
	if p.gen.Vault {
		if vault, ixErr = p.loadVault(vaultMeta); ixErr != nil {
			return ixErr
		}
		if !vault.Requester.Equals(req.Address) {
			return p.fail(solrand.KindUnauthorized)
		}
	}
	if !req.Authority.Equals(authority.PublicKey) {
		return p.fail(solrand.KindUnauthorized)
	}
	if !req.Oracle.Equals(oracle.PublicKey) {
		return p.fail(solrand.KindWrongOracle)
	}
	if req.ActiveRequest {
		return p.fail(solrand.KindInflightRequest)
	}

	if p.gen.Vault {
		// The vault keeps its rent reserve.
		if vault.Lamports < solrand.OracleFeeLamports+rentExempt(solrand.VaultAccountSize) {
			return builtinError("InvalidArgument", "invalid program argument")
		}
		p.ex.get(vault.Address).Lamports -= solrand.OracleFeeLamports
		p.ex.v.credit(p.ex.accounts, oracle.PublicKey, solrand.OracleFeeLamports)
	} else if ixErr := p.ex.move(authority.PublicKey, oracle.PublicKey, solrand.OracleFeeLamports); ixErr != nil {
		return ixErr
	}

	req.ActiveRequest = true
	req.LastUpdated = p.ex.now
	if ixErr := p.storeRequester(req); ixErr != nil {
		return ixErr
	}
	p.ex.logs = append(p.ex.logs, solrand.EncodeEvent(solrand.Event{Kind: solrand.EventRandomRequested, Requester: req.Address}))
	return nil
}

func (p *oracleProgram) publishRandom(metas []*solana.AccountMeta, args []byte) *instructionError {
	if len(metas) < 3 {
		return customError(anchorAccountNotEnoughKeys)
	}
	requesterMeta, oracle := metas[0], metas[1]
	if p.gen.PublishRemainingAccount {
		oracle, requesterMeta = metas[0], metas[2]
	}
	if !oracle.IsSigner {
		return customError(anchorConstraintSigner)
	}

	var in solrand.PublishRandomArgs
	if len(args) != solrand.RandomSize+solrand.PktIDSize+solrand.TLSIDSize {
		return customError(anchorInstructionDidNotDeserialize)
	}
	if err := bin.NewBorshDecoder(args).Decode(&in); err != nil {
		return customError(anchorInstructionDidNotDeserialize)
	}

	req, ixErr := p.loadRequester(requesterMeta)
	if ixErr != nil {
		return ixErr
	}
	if !req.Oracle.Equals(oracle.PublicKey) {
		return p.fail(solrand.KindUnauthorized)
	}
	if !req.ActiveRequest {
		return p.fail(solrand.KindAlreadyCompleted)
	}

	req.ActiveRequest = false
	req.Count++
	req.LastUpdated = p.ex.now
	req.Random = in.Random
	req.PktID = in.PktID
	req.TLSID = in.TLSID
	if ixErr := p.storeRequester(req); ixErr != nil {
		return ixErr
	}
	p.ex.logs = append(p.ex.logs, solrand.EncodeEvent(solrand.Event{Kind: solrand.EventRandomPublished, Requester: req.Address}))
	return nil
}

func (p *oracleProgram) transferAuthority(metas []*solana.AccountMeta) *instructionError {
	if len(metas) < 4 {
		return customError(anchorAccountNotEnoughKeys)
	}
	requesterMeta, authority, newAuthority := metas[0], metas[1], metas[2]
	if !authority.IsSigner {
		return customError(anchorConstraintSigner)
	}
	req, ixErr := p.loadRequester(requesterMeta)
	if ixErr != nil {
		return ixErr
	}
	if !req.Authority.Equals(authority.PublicKey) {
		return p.fail(solrand.KindUnauthorized)
	}
	if req.ActiveRequest {
		return p.fail(solrand.KindRequesterLocked)
	}
	req.Authority = newAuthority.PublicKey
	return p.storeRequester(req)
}

func (p *oracleProgram) cancel(metas []*solana.AccountMeta) *instructionError {
	if len(metas) < 3 {
		return customError(anchorAccountNotEnoughKeys)
	}
	requesterMeta, authority := metas[0], metas[1]
	if !authority.IsSigner {
		return customError(anchorConstraintSigner)
	}
	req, ixErr := p.loadRequester(requesterMeta)
	if ixErr != nil {
		return ixErr
	}
	if !req.Authority.Equals(authority.PublicKey) {
		return p.fail(solrand.KindUnauthorized)
	}
	if req.ActiveRequest {
		return p.fail(solrand.KindRequesterLocked)
	}

	// close = authority
	closed := p.ex.get(req.Address)
	p.ex.v.credit(p.ex.accounts, authority.PublicKey, closed.Lamports)
	delete(p.ex.accounts, req.Address)
	return nil
}

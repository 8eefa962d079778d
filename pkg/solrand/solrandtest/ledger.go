package solrandtest

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// System program errors reported as custom codes.
const (
	systemAccountAlreadyInUse        uint32 = 0
	systemResultWithNegativeLamports uint32 = 1
)

type account struct {
	Lamports   uint64
	Owner      solana.PublicKey
	Data       []byte
	Executable bool
}

func (acc *account) clone() *account {
	out := *acc
	out.Data = append([]byte(nil), acc.Data...)
	return &out
}

// rentExempt returns the minimum balance of an account holding size bytes.
func rentExempt(size int) uint64 {
	return uint64(size+128) * 3480 * 2
}

func (v *Validator) credit(accounts map[solana.PublicKey]*account, pk solana.PublicKey, lamports uint64) {
	acc, ok := accounts[pk]
	if !ok {
		acc = &account{Owner: solana.SystemProgramID}
		accounts[pk] = acc
	}
	acc.Lamports += lamports
}

// land records a transaction in a new slot and issues a fresh blockhash.
func (v *Validator) land(sig solana.Signature, rec *txRecord) {
	v.slot++
	rec.slot = v.slot
	rec.blockTime = v.now().Unix()
	v.txs[sig] = rec
	v.rotateBlockhash()
}

// instructionError is a failed instruction. detail is the JSON value placed
// in the InstructionError tuple.
type instructionError struct {
	detail  interface{}
	message string
}

func customError(code uint32) *instructionError {
	return &instructionError{
		detail:  map[string]uint32{"Custom": code},
		message: fmt.Sprintf("custom program error: 0x%x", code),
	}
}

func builtinError(name, message string) *instructionError {
	return &instructionError{detail: name, message: message}
}

// transactionError is a failure before any instruction runs.
type transactionError struct {
	detail  interface{}
	message string
}

// execution is one transaction applied to a working copy of the accounts.
type execution struct {
	v        *Validator
	tx       *solana.Transaction
	accounts map[solana.PublicKey]*account
	logs     []string
	now      int64
}

func (ex *execution) log(format string, args ...interface{}) {
	ex.logs = append(ex.logs, fmt.Sprintf(format, args...))
}

func (ex *execution) get(pk solana.PublicKey) *account {
	return ex.accounts[pk]
}

// move transfers lamports between two accounts of the working copy.
func (ex *execution) move(from, to solana.PublicKey, lamports uint64) *instructionError {
	src := ex.get(from)
	if src == nil || src.Lamports < lamports {
		var have uint64
		if src != nil {
			have = src.Lamports
		}
		ex.log("Transfer: insufficient lamports %d, need %d", have, lamports)
		return customError(systemResultWithNegativeLamports)
	}
	src.Lamports -= lamports
	ex.v.credit(ex.accounts, to, lamports)
	return nil
}

// create allocates a program-owned account funded by payer.
func (ex *execution) create(payer, pk, owner solana.PublicKey, data []byte) *instructionError {
	if acc := ex.get(pk); acc != nil && (acc.Lamports > 0 || len(acc.Data) > 0) {
		ex.log("Allocate: account Address { address: %s, base: None } already in use", pk)
		return customError(systemAccountAlreadyInUse)
	}
	if ixErr := ex.move(payer, pk, rentExempt(len(data))); ixErr != nil {
		return ixErr
	}
	acc := ex.get(pk)
	acc.Owner = owner
	acc.Data = append([]byte(nil), data...)
	return nil
}

func (v *Validator) snapshot() map[solana.PublicKey]*account {
	out := make(map[solana.PublicKey]*account, len(v.accounts))
	for pk, acc := range v.accounts {
		out[pk] = acc.clone()
	}
	return out
}

// submit verifies, simulates and lands a transaction. With preflight, a
// failing transaction is rejected and nothing is charged; without it, the
// fee is charged and the failure is recorded in the signature status.
func (v *Validator) submit(raw []byte, skipPreflight bool) (interface{}, *jsonrpc.RPCError) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, invalidParams("failed to deserialize transaction: " + err.Error())
	}
	if len(tx.Signatures) == 0 || len(tx.Message.AccountKeys) == 0 {
		return nil, invalidParams("transaction has no signatures")
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, &jsonrpc.RPCError{Code: codeSignatureVerifyFailure, Message: "Transaction signature verification failure"}
	}
	sig := tx.Signatures[0]

	if txErr := v.precheck(tx, sig); txErr != nil {
		return nil, v.simulationFailure(txErr.detail, "Transaction simulation failed: "+txErr.message, nil)
	}

	payer := tx.Message.AccountKeys[0]
	fee := solrand.SignatureFeeLamports * uint64(len(tx.Signatures))
	ex := &execution{v: v, tx: tx, accounts: v.snapshot(), now: v.now().Unix()}
	ex.accounts[payer].Lamports -= fee

	idx, ixErr := ex.run()
	if ixErr == nil {
		v.accounts = ex.accounts
		v.land(sig, &txRecord{raw: raw, fee: fee, logs: ex.logs})
		return sig, nil
	}

	txErrValue := map[string]interface{}{"InstructionError": []interface{}{idx, ixErr.detail}}
	if !skipPreflight {
		msg := fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", idx, ixErr.message)
		return nil, v.simulationFailure(txErrValue, msg, ex.logs)
	}
	v.accounts[payer].Lamports -= fee
	v.land(sig, &txRecord{raw: raw, fee: fee, logs: ex.logs, err: txErrValue})
	return sig, nil
}

// precheck runs the checks a node performs before executing instructions.
func (v *Validator) precheck(tx *solana.Transaction, sig solana.Signature) *transactionError {
	if _, ok := v.txs[sig]; ok {
		return &transactionError{detail: "AlreadyProcessed", message: "This transaction has already been processed"}
	}
	issued, ok := v.blockhashes[tx.Message.RecentBlockhash]
	if !ok || v.slot > issued+blockhashValidityWindow {
		return &transactionError{detail: "BlockhashNotFound", message: "Blockhash not found"}
	}
	payer, ok := v.accounts[tx.Message.AccountKeys[0]]
	if !ok || payer.Lamports == 0 {
		return &transactionError{
			detail:  "AccountNotFound",
			message: "Attempt to debit an account but found no record of a prior credit.",
		}
	}
	if payer.Lamports < solrand.SignatureFeeLamports*uint64(len(tx.Signatures)) {
		return &transactionError{detail: "InsufficientFundsForFee", message: "Insufficient funds for fee"}
	}
	return nil
}

func (v *Validator) simulationFailure(txErr interface{}, message string, logs []string) *jsonrpc.RPCError {
	if logs == nil {
		logs = []string{}
	}
	return &jsonrpc.RPCError{
		Code:    codeSimulationFailed,
		Message: message,
		Data: map[string]interface{}{
			"err":           txErr,
			"logs":          logs,
			"accounts":      nil,
			"unitsConsumed": 0,
		},
	}
}

// run executes every instruction in order and returns the index of the first
// failing one.
func (ex *execution) run() (int, *instructionError) {
	for i, ci := range ex.tx.Message.Instructions {
		programID, err := ex.tx.Message.Program(ci.ProgramIDIndex)
		if err != nil {
			return i, builtinError("InvalidAccountData", "invalid account data for instruction")
		}
		metas, err := ci.ResolveInstructionAccounts(&ex.tx.Message)
		if err != nil {
			return i, builtinError("NotEnoughAccountKeys", "insufficient account keys for instruction")
		}

		ex.log("Program %s invoke [1]", programID)
		var ixErr *instructionError
		switch {
		case programID.Equals(solana.SystemProgramID):
			ixErr = ex.runSystem(metas, ci.Data)
		default:
			gen, ok := ex.v.programs[programID]
			if !ok {
				return i, builtinError("UnsupportedProgramId", "Unsupported program id")
			}
			ixErr = (&oracleProgram{id: programID, gen: gen, ex: ex}).process(metas, ci.Data)
		}
		if ixErr != nil {
			ex.log("Program %s failed: %s", programID, ixErr.message)
			return i, ixErr
		}
		ex.log("Program %s success", programID)
	}
	return 0, nil
}

func (ex *execution) runSystem(metas []*solana.AccountMeta, data []byte) *instructionError {
	inst, err := system.DecodeInstruction(metas, data)
	if err != nil {
		return builtinError("InvalidInstructionData", "invalid instruction data")
	}
	transfer, ok := inst.Impl.(*system.Transfer)
	if !ok || transfer.Lamports == nil {
		return builtinError("InvalidInstructionData", "invalid instruction data")
	}
	from := transfer.GetFundingAccount()
	to := transfer.GetRecipientAccount()
	if from == nil || to == nil {
		return builtinError("NotEnoughAccountKeys", "insufficient account keys for instruction")
	}
	if !from.IsSigner {
		return builtinError("MissingRequiredSignature", "missing required signature for instruction")
	}
	return ex.move(from.PublicKey, to.PublicKey, *transfer.Lamports)
}

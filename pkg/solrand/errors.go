package solrand

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountsNotSet     = errors.New("accounts not derived, call SetAccounts first")
	ErrNoVault            = errors.New("program generation has no vault account")
	ErrInvalidAccountData = errors.New("invalid account data")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrConfirmTimeout     = errors.New("transaction confirmation interrupted")
)

// Errors raised by the oracle program.
var (
	ErrUnauthorized     = errors.New("you are not authorized to complete this transaction")
	ErrAlreadyCompleted = errors.New("you have already completed this transaction")
	ErrInflightRequest  = errors.New("a request is already in progress, only one request may be made at a time")
	ErrWrongOracle      = errors.New("the oracle you make the request with must be the same as initialization")
	ErrRequesterLocked  = errors.New("you cannot change authority of a request awaiting a response")
)

// ProgramErrorKind is the position of an error in the program's error enum.
type ProgramErrorKind uint32

const (
	KindUnauthorized ProgramErrorKind = iota
	KindAlreadyCompleted
	KindInflightRequest
	KindWrongOracle
	KindRequesterLocked
)

var programErrors = []struct {
	name     string
	sentinel error
}{
	KindUnauthorized:     {"Unauthorized", ErrUnauthorized},
	KindAlreadyCompleted: {"AlreadyCompleted", ErrAlreadyCompleted},
	KindInflightRequest:  {"InflightRequest", ErrInflightRequest},
	KindWrongOracle:      {"WrongOracle", ErrWrongOracle},
	KindRequesterLocked:  {"RequesterLocked", ErrRequesterLocked},
}

// Code returns the custom error code the program emits for kind.
func (g Generation) Code(kind ProgramErrorKind) uint32 { return g.ErrorBase + uint32(kind) }

// ProgramError is a custom error returned by an instruction during preflight
// simulation. Err is the RPC error it was decoded from.
type ProgramError struct {
	Code        uint32
	Instruction int
	Name        string
	Logs        []string
	Err         error

	sentinel error
}

func (e *ProgramError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("program error %d (0x%x) %s in instruction %d: %v", e.Code, e.Code, e.Name, e.Instruction, e.sentinel)
	}
	return fmt.Sprintf("program error %d (0x%x) in instruction %d", e.Code, e.Code, e.Instruction)
}

func (e *ProgramError) Unwrap() []error {
	if e.sentinel != nil {
		return []error{e.sentinel, e.Err}
	}
	return []error{e.Err}
}

var customErrorPattern = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)

// decodeError turns an RPC error carrying an InstructionError with a custom
// code into a *ProgramError. Any other error is returned wrapped as-is.
func (s *Session) decodeError(err error) error {
	if perr := ParseProgramError(err, s.generation); perr != nil {
		return perr
	}
	return fmt.Errorf("send transaction: %w", err)
}

// ParseProgramError extracts the custom program error from a sendTransaction
// failure. It returns nil when err does not carry one.
func ParseProgramError(err error, gen Generation) *ProgramError {
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return nil
	}

	perr := &ProgramError{Err: err}
	found := false
	if data, ok := rpcErr.Data.(map[string]interface{}); ok {
		perr.Logs = stringSlice(data["logs"])
		if txErr, ok := data["err"].(map[string]interface{}); ok {
			if ix, ok := txErr["InstructionError"].([]interface{}); ok && len(ix) == 2 {
				if idx, ok := toUint64(ix[0]); ok {
					perr.Instruction = int(idx)
				}
				if custom, ok := ix[1].(map[string]interface{}); ok {
					if code, ok := toUint64(custom["Custom"]); ok {
						perr.Code = uint32(code)
						found = true
					}
				}
			}
		}
	}
	if !found {
		m := customErrorPattern.FindStringSubmatch(rpcErr.Message)
		if m == nil {
			return nil
		}
		code, parseErr := strconv.ParseUint(m[1], 16, 32)
		if parseErr != nil {
			return nil
		}
		perr.Code = uint32(code)
	}

	if perr.Code >= gen.ErrorBase && perr.Code < gen.ErrorBase+uint32(len(programErrors)) {
		known := programErrors[perr.Code-gen.ErrorBase]
		perr.Name = known.name
		perr.sentinel = known.sentinel
	}
	return perr
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case json.Number:
		u, err := strconv.ParseUint(n.String(), 10, 64)
		return u, err == nil
	case float64:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	case uint64:
		return n, true
	case nil:
		return 0, false
	}
	u, err := strconv.ParseUint(fmt.Sprint(v), 10, 64)
	return u, err == nil
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

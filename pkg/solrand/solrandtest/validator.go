// Package solrandtest runs an in-process Solana JSON-RPC endpoint that hosts
// a simulation of the oracle program, so sessions can be exercised end to end
// without a local validator.
package solrandtest

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/tidwall/gjson"

	"github.com/solrand/solrand-sdk-go/pkg/solrand"
)

// JSON-RPC error codes used by Solana nodes.
const (
	codeInvalidRequest         = -32600
	codeMethodNotFound         = -32601
	codeInvalidParams          = -32602
	codeSimulationFailed       = -32002
	codeSignatureVerifyFailure = -32003
)

// blockhashValidityWindow is the number of slots a blockhash stays usable.
const blockhashValidityWindow = 150

// Validator is a single-node test cluster. All state lives in memory and is
// guarded by one mutex; every landed transaction is finalized immediately.
type Validator struct {
	server *httptest.Server

	mu          sync.Mutex
	accounts    map[solana.PublicKey]*account
	programs    map[solana.PublicKey]solrand.Generation
	txs         map[solana.Signature]*txRecord
	blockhashes map[solana.Hash]uint64
	blockhash   solana.Hash
	slot        uint64
	airdrops    bool
	now         func() time.Time
}

type txRecord struct {
	slot      uint64
	blockTime int64
	raw       []byte
	fee       uint64
	logs      []string
	err       interface{}
}

// NewValidator starts a validator hosting the given program generations, or
// all known generations when none are given. It is closed with the test.
func NewValidator(t testing.TB, gens ...solrand.Generation) *Validator {
	t.Helper()
	if len(gens) == 0 {
		gens = []solrand.Generation{solrand.GenerationV1, solrand.GenerationV2, solrand.GenerationV3}
	}

	v := &Validator{
		accounts:    make(map[solana.PublicKey]*account),
		programs:    make(map[solana.PublicKey]solrand.Generation),
		txs:         make(map[solana.Signature]*txRecord),
		blockhashes: make(map[solana.Hash]uint64),
		slot:        1,
		airdrops:    true,
		now:         time.Now,
	}
	for _, gen := range gens {
		v.HostProgram(gen.ProgramID, gen)
	}
	v.rotateBlockhash()

	v.server = httptest.NewServer(v)
	t.Cleanup(v.server.Close)
	return v
}

// URL returns the JSON-RPC endpoint.
func (v *Validator) URL() string { return v.server.URL }

// Client returns a solana-go RPC client connected to the validator.
func (v *Validator) Client() *solanarpc.Client { return solanarpc.New(v.server.URL) }

// HostProgram deploys the simulated oracle program of gen at programID.
func (v *Validator) HostProgram(programID solana.PublicKey, gen solrand.Generation) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.programs[programID] = gen
	v.accounts[programID] = &account{
		Lamports:   1,
		Owner:      solana.BPFLoaderUpgradeableProgramID,
		Executable: true,
	}
}

// DisableAirdrops makes requestAirdrop fail like a rate-limited faucet.
func (v *Validator) DisableAirdrops() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.airdrops = false
}

// SetClock overrides the time used for block times and the program clock.
func (v *Validator) SetClock(now func() time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = now
}

// Fund credits lamports to an account without a transaction.
func (v *Validator) Fund(pk solana.PublicKey, lamports uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credit(v.accounts, pk, lamports)
}

// Balance returns the lamports of an account.
func (v *Validator) Balance(pk solana.PublicKey) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if acc, ok := v.accounts[pk]; ok {
		return acc.Lamports
	}
	return 0
}

// AccountData returns a copy of an account's data and whether it exists.
func (v *Validator) AccountData(pk solana.PublicKey) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	acc, ok := v.accounts[pk]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), acc.Data...), true
}

// SetAccount stores raw account state, e.g. to seed fixtures.
func (v *Validator) SetAccount(pk solana.PublicKey, owner solana.PublicKey, lamports uint64, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.accounts[pk] = &account{Lamports: lamports, Owner: owner, Data: append([]byte(nil), data...)}
}

type response struct {
	JSONRPC string            `json:"jsonrpc"`
	Result  interface{}       `json:"result,omitempty"`
	Error   *jsonrpc.RPCError `json:"error,omitempty"`
	ID      json.RawMessage   `json:"id"`
}

// ServeHTTP implements the JSON-RPC endpoint.
func (v *Validator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req := gjson.ParseBytes(body)

	resp := response{JSONRPC: "2.0", ID: json.RawMessage("null")}
	if id := req.Get("id"); id.Exists() {
		resp.ID = json.RawMessage(id.Raw)
	}

	if !req.Get("method").Exists() {
		resp.Error = &jsonrpc.RPCError{Code: codeInvalidRequest, Message: "Invalid request"}
	} else {
		resp.Result, resp.Error = v.dispatch(req.Get("method").String(), req.Get("params"))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (v *Validator) dispatch(method string, params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch method {
	case "getBalance":
		return v.getBalance(params)
	case "requestAirdrop":
		return v.requestAirdrop(params)
	case "getLatestBlockhash":
		return v.getLatestBlockhash()
	case "sendTransaction":
		return v.sendTransaction(params)
	case "getSignatureStatuses":
		return v.getSignatureStatuses(params)
	case "getAccountInfo":
		return v.getAccountInfo(params)
	case "getProgramAccounts":
		return v.getProgramAccounts(params)
	case "getTransaction":
		return v.getTransaction(params)
	}
	return nil, &jsonrpc.RPCError{Code: codeMethodNotFound, Message: "Method not found"}
}

func (v *Validator) context() solanarpc.RPCContext {
	return solanarpc.RPCContext{Context: solanarpc.Context{Slot: v.slot}}
}

func (v *Validator) rotateBlockhash() {
	var h solana.Hash
	_, _ = rand.Read(h[:])
	v.blockhash = h
	v.blockhashes[h] = v.slot
}

func invalidParams(msg string) *jsonrpc.RPCError {
	return &jsonrpc.RPCError{Code: codeInvalidParams, Message: "Invalid params: " + msg}
}

func paramPublicKey(params gjson.Result, path string) (solana.PublicKey, *jsonrpc.RPCError) {
	pk, err := solana.PublicKeyFromBase58(params.Get(path).String())
	if err != nil {
		return solana.PublicKey{}, invalidParams("Invalid param: " + err.Error())
	}
	return pk, nil
}

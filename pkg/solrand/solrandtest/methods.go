package solrandtest

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"math"
	"math/big"
	"sort"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/tidwall/gjson"
)

func (v *Validator) getBalance(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	pk, rpcErr := paramPublicKey(params, "0")
	if rpcErr != nil {
		return nil, rpcErr
	}
	var lamports uint64
	if acc, ok := v.accounts[pk]; ok {
		lamports = acc.Lamports
	}
	return solanarpc.GetBalanceResult{RPCContext: v.context(), Value: lamports}, nil
}

func (v *Validator) requestAirdrop(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	pk, rpcErr := paramPublicKey(params, "0")
	if rpcErr != nil {
		return nil, rpcErr
	}
	if !v.airdrops {
		return nil, &jsonrpc.RPCError{
			Code:    codeInvalidRequest,
			Message: "airdrop request failed. This can happen when the rate limit is reached.",
		}
	}
	lamports := params.Get("1").Uint()
	if lamports == 0 {
		return nil, invalidParams("lamports must be positive")
	}

	v.credit(v.accounts, pk, lamports)
	var sig solana.Signature
	_, _ = rand.Read(sig[:])
	v.land(sig, &txRecord{logs: []string{}})
	return sig, nil
}

func (v *Validator) getLatestBlockhash() (interface{}, *jsonrpc.RPCError) {
	return solanarpc.GetLatestBlockhashResult{
		RPCContext: v.context(),
		Value: &solanarpc.LatestBlockhashResult{
			Blockhash:            v.blockhash,
			LastValidBlockHeight: v.blockhashes[v.blockhash] + blockhashValidityWindow,
		},
	}, nil
}

func (v *Validator) sendTransaction(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	if enc := params.Get("1.encoding").String(); enc != "" && enc != string(solana.EncodingBase64) {
		return nil, invalidParams("unsupported encoding " + enc)
	}
	raw, err := base64.StdEncoding.DecodeString(params.Get("0").String())
	if err != nil {
		return nil, invalidParams("invalid base64 transaction: " + err.Error())
	}
	skipPreflight := params.Get("1.skipPreflight").Bool()
	return v.submit(raw, skipPreflight)
}

func (v *Validator) getSignatureStatuses(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	sigs := params.Get("0").Array()
	out := solanarpc.GetSignatureStatusesResult{
		RPCContext: v.context(),
		Value:      make([]*solanarpc.SignatureStatusesResult, len(sigs)),
	}
	for i, s := range sigs {
		sig, err := solana.SignatureFromBase58(s.String())
		if err != nil {
			return nil, invalidParams("Invalid param: " + err.Error())
		}
		rec, ok := v.txs[sig]
		if !ok {
			continue
		}
		out.Value[i] = &solanarpc.SignatureStatusesResult{
			Slot:               rec.slot,
			Err:                rec.err,
			ConfirmationStatus: solanarpc.ConfirmationStatusFinalized,
		}
	}
	return out, nil
}

func (v *Validator) getAccountInfo(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	pk, rpcErr := paramPublicKey(params, "0")
	if rpcErr != nil {
		return nil, rpcErr
	}
	out := solanarpc.GetAccountInfoResult{RPCContext: v.context()}
	if acc, ok := v.accounts[pk]; ok {
		out.Value = acc.rpcAccount()
	}
	return out, nil
}

func (v *Validator) getProgramAccounts(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	program, rpcErr := paramPublicKey(params, "0")
	if rpcErr != nil {
		return nil, rpcErr
	}

	type memcmp struct {
		offset uint64
		bytes  []byte
	}
	var (
		memcmps  []memcmp
		dataSize *uint64
	)
	for _, f := range params.Get("1.filters").Array() {
		if m := f.Get("memcmp"); m.Exists() {
			var b solana.Base58
			if err := json.Unmarshal([]byte(m.Get("bytes").Raw), &b); err != nil {
				return nil, invalidParams("invalid memcmp bytes: " + err.Error())
			}
			memcmps = append(memcmps, memcmp{offset: m.Get("offset").Uint(), bytes: b})
		}
		if ds := f.Get("dataSize"); ds.Exists() {
			size := ds.Uint()
			dataSize = &size
		}
	}

	out := solanarpc.GetProgramAccountsResult{}
	for pk, acc := range v.accounts {
		if !acc.Owner.Equals(program) {
			continue
		}
		if dataSize != nil && uint64(len(acc.Data)) != *dataSize {
			continue
		}
		matched := true
		for _, m := range memcmps {
			end := m.offset + uint64(len(m.bytes))
			if end > uint64(len(acc.Data)) || !bytes.Equal(acc.Data[m.offset:end], m.bytes) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, &solanarpc.KeyedAccount{Pubkey: pk, Account: acc.rpcAccount()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Pubkey[:], out[j].Pubkey[:]) < 0
	})
	return out, nil
}

// transactionResult mirrors the getTransaction response with base64
// transaction encoding.
type transactionResult struct {
	Slot        uint64                       `json:"slot"`
	BlockTime   int64                        `json:"blockTime"`
	Transaction solana.Data                  `json:"transaction"`
	Meta        transactionMeta              `json:"meta"`
	Version     solanarpc.TransactionVersion `json:"version"`
}

type transactionMeta struct {
	Err          interface{} `json:"err"`
	Fee          uint64      `json:"fee"`
	PreBalances  []uint64    `json:"preBalances"`
	PostBalances []uint64    `json:"postBalances"`
	LogMessages  []string    `json:"logMessages"`
}

func (v *Validator) getTransaction(params gjson.Result) (interface{}, *jsonrpc.RPCError) {
	sig, err := solana.SignatureFromBase58(params.Get("0").String())
	if err != nil {
		return nil, invalidParams("Invalid param: " + err.Error())
	}
	rec, ok := v.txs[sig]
	if !ok || rec.raw == nil {
		return nil, nil
	}
	return transactionResult{
		Slot:        rec.slot,
		BlockTime:   rec.blockTime,
		Transaction: solana.Data{Content: rec.raw, Encoding: solana.EncodingBase64},
		Meta: transactionMeta{
			Err:          rec.err,
			Fee:          rec.fee,
			PreBalances:  []uint64{},
			PostBalances: []uint64{},
			LogMessages:  rec.logs,
		},
		Version: solanarpc.LegacyTransactionVersion,
	}, nil
}

func (acc *account) rpcAccount() *solanarpc.Account {
	return &solanarpc.Account{
		Lamports:   acc.Lamports,
		Owner:      acc.Owner,
		Data:       solanarpc.DataBytesOrJSONFromBytes(append([]byte(nil), acc.Data...)),
		Executable: acc.Executable,
		RentEpoch:  new(big.Int).SetUint64(math.MaxUint64),
	}
}

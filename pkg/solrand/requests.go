package solrand

import (
	"context"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

// RequestFilter narrows a requester account query. Nil keys match anything.
type RequestFilter struct {
	Oracle     *solana.PublicKey
	Authority  *solana.PublicKey
	ActiveOnly bool
}

// createRequestFilters creates memcmp filters for requester queries.
func createRequestFilters(filter RequestFilter) []solanarpc.RPCFilter {
	filters := []solanarpc.RPCFilter{
		memcmpFilter(0, RequesterDiscriminator[:]),
	}

	if filter.Authority != nil {
		filters = append(filters, memcmpFilter(authorityOffset, filter.Authority.Bytes()))
	}

	if filter.Oracle != nil {
		filters = append(filters, memcmpFilter(oracleOffset, filter.Oracle.Bytes()))
	}

	if filter.ActiveOnly {
		filters = append(filters, memcmpFilter(activeRequestOffset, []byte{1}))
	}

	return filters
}

// ListRequestAccounts returns all requester accounts of the program that match
// filter, ordered by creation time then address.
func (s *Session) ListRequestAccounts(ctx context.Context, filter RequestFilter) ([]RequestAccount, error) {
	accs, err := s.rpc.GetProgramAccountsWithOpts(ctx, s.programID, &solanarpc.GetProgramAccountsOpts{
		Commitment: s.commitment,
		Filters:    createRequestFilters(filter),
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts: %w", err)
	}

	requests := make([]RequestAccount, 0, len(accs))
	for _, acc := range accs {
		if acc == nil || acc.Account == nil {
			continue
		}
		req, err := parseKeyedRequest(acc, s.generation)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}

	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt != requests[j].CreatedAt {
			return requests[i].CreatedAt < requests[j].CreatedAt
		}
		return requests[i].Address.String() < requests[j].Address.String()
	})
	return requests, nil
}

// parseKeyedRequest parses a program account into a RequestAccount.
func parseKeyedRequest(acc *solanarpc.KeyedAccount, gen Generation) (*RequestAccount, error) {
	req, err := ParseRequestAccount(acc.Account.Data.GetBinary(), gen)
	if err != nil {
		return nil, fmt.Errorf("decode requester %s: %w", acc.Pubkey, err)
	}
	req.Address = acc.Pubkey
	req.Lamports = acc.Account.Lamports
	return req, nil
}

// memcmpFilter helper to construct an RPC memcmp filter.
func memcmpFilter(offset uint64, bytes []byte) solanarpc.RPCFilter {
	return solanarpc.RPCFilter{Memcmp: &solanarpc.RPCFilterMemcmp{Offset: offset, Bytes: bytes}}
}

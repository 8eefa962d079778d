package solrand

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestFilters(t *testing.T) {
	filters := createRequestFilters(RequestFilter{})
	require.Len(t, filters, 1)
	assert.Equal(t, uint64(0), filters[0].Memcmp.Offset)
	assert.Equal(t, solana.Base58(RequesterDiscriminator[:]), filters[0].Memcmp.Bytes)

	oracle := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	filters = createRequestFilters(RequestFilter{Oracle: &oracle, Authority: &authority, ActiveOnly: true})
	require.Len(t, filters, 4)
	assert.Equal(t, []solanarpc.RPCFilter{
		memcmpFilter(0, RequesterDiscriminator[:]),
		memcmpFilter(8, authority.Bytes()),
		memcmpFilter(40, oracle.Bytes()),
		memcmpFilter(224, []byte{1}),
	}, filters)
}

package solrand

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulationError(index int, detail interface{}) *jsonrpc.RPCError {
	return &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x12e",
		Data: map[string]interface{}{
			"err": map[string]interface{}{
				"InstructionError": []interface{}{json.Number(fmt.Sprint(index)), detail},
			},
			"logs": []interface{}{"Program log: Instruction: RequestRandom", "Program log: Custom program error: 0x12e"},
		},
	}
}

func TestParseProgramError(t *testing.T) {
	rpcErr := simulationError(0, map[string]interface{}{"Custom": json.Number("302")})

	perr := ParseProgramError(fmt.Errorf("send: %w", rpcErr), GenerationV3)
	require.NotNil(t, perr)
	assert.Equal(t, uint32(302), perr.Code)
	assert.Equal(t, "InflightRequest", perr.Name)
	assert.Equal(t, 0, perr.Instruction)
	assert.Len(t, perr.Logs, 2)

	assert.ErrorIs(t, perr, ErrInflightRequest)
	assert.NotErrorIs(t, perr, ErrUnauthorized)

	var got *jsonrpc.RPCError
	require.ErrorAs(t, perr, &got)
	assert.Equal(t, -32002, got.Code)
}

func TestParseProgramErrorCodes(t *testing.T) {
	cases := []struct {
		kind ProgramErrorKind
		want error
	}{
		{KindUnauthorized, ErrUnauthorized},
		{KindAlreadyCompleted, ErrAlreadyCompleted},
		{KindInflightRequest, ErrInflightRequest},
		{KindWrongOracle, ErrWrongOracle},
		{KindRequesterLocked, ErrRequesterLocked},
	}
	for _, tc := range cases {
		code := GenerationV1.Code(tc.kind)
		perr := ParseProgramError(simulationError(1, map[string]interface{}{"Custom": float64(code)}), GenerationV1)
		require.NotNil(t, perr)
		assert.Equal(t, 1, perr.Instruction)
		assert.ErrorIs(t, perr, tc.want)
	}
}

func TestParseProgramErrorFromMessage(t *testing.T) {
	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x12c",
	}
	perr := ParseProgramError(rpcErr, GenerationV3)
	require.NotNil(t, perr)
	assert.Equal(t, uint32(300), perr.Code)
	assert.ErrorIs(t, perr, ErrUnauthorized)
}

func TestParseProgramErrorUnknownCode(t *testing.T) {
	perr := ParseProgramError(simulationError(0, map[string]interface{}{"Custom": json.Number("101")}), GenerationV3)
	require.NotNil(t, perr)
	assert.Equal(t, uint32(101), perr.Code)
	assert.Empty(t, perr.Name)
	assert.Contains(t, perr.Error(), "0x65")
	for _, sentinel := range []error{ErrUnauthorized, ErrAlreadyCompleted, ErrInflightRequest, ErrWrongOracle, ErrRequesterLocked} {
		assert.NotErrorIs(t, perr, sentinel)
	}
}

func TestParseProgramErrorNotProgramError(t *testing.T) {
	assert.Nil(t, ParseProgramError(errors.New("connection refused"), GenerationV3))
	assert.Nil(t, ParseProgramError(nil, GenerationV3))

	builtin := simulationError(0, "InvalidArgument")
	builtin.Message = "Transaction simulation failed: Error processing Instruction 0: invalid program argument"
	assert.Nil(t, ParseProgramError(builtin, GenerationV1))
}

func TestDecodeErrorWrapsOtherErrors(t *testing.T) {
	s := &Session{generation: GenerationV3}
	cause := errors.New("connection refused")

	err := s.decodeError(cause)
	assert.ErrorIs(t, err, cause)

	var perr *ProgramError
	assert.False(t, errors.As(err, &perr))
}

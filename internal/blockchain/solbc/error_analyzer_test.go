package solbc

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnalyzeRPCErrorSimulationFailed(t *testing.T) {
	ea := NewErrorAnalyzer(zap.NewNop())

	rpcErr := &jsonrpc.RPCError{
		Code:    -32002,
		Message: "Transaction simulation failed: Error processing Instruction 2: custom program error: 0x1770",
		Data: map[string]interface{}{
			"err": map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6000}}},
			"logs": []interface{}{
				"Program 7rPx2YD8zuQG1owdEp7mYtqgTzDpwe9qt8rnPVJAFc4D invoke [1]",
				"Program log: AnchorError occurred. Error Code: Unauthorized. Error Number: 6000. Error Message: Unauthorized access.",
			},
		},
	}

	analysis := ea.AnalyzeRPCError(fmt.Errorf("send: %w", rpcErr))
	require.NotNil(t, analysis)
	assert.True(t, analysis.SimulationFailed)
	assert.Len(t, analysis.Logs, 2)
	require.NotNil(t, analysis.Anchor)
	assert.Equal(t, 6000, analysis.Anchor.Code)
	assert.Equal(t, "Unauthorized", analysis.Anchor.Name)
	assert.Equal(t, "Unauthorized access", analysis.Anchor.Msg)
	assert.NotNil(t, analysis.InstructionError)
}

func TestAnalyzeRPCErrorNonRPC(t *testing.T) {
	ea := NewErrorAnalyzer(zap.NewNop())
	assert.Nil(t, ea.AnalyzeRPCError(nil))
	assert.Nil(t, ea.AnalyzeRPCError(fmt.Errorf("dial tcp: connection refused")))
}

func TestParseLogsCustomProgramError(t *testing.T) {
	ea := NewErrorAnalyzer(zap.NewNop())

	anchorErr := ea.ParseLogs([]string{
		"Program 7rPx2YD8zuQG1owdEp7mYtqgTzDpwe9qt8rnPVJAFc4D failed: custom program error: 0x1771",
	})
	require.NotNil(t, anchorErr)
	assert.Equal(t, 6001, anchorErr.Code)

	assert.Nil(t, ea.ParseLogs([]string{"Program log: ok"}))
}

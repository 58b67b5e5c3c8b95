package solbc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
	Msg  string `json:"msg"`
}

// Analysis is the parsed form of a failed send or simulation
type Analysis struct {
	RPCCode          int
	Message          string
	SimulationFailed bool
	Logs             []string
	InstructionError interface{}
	Anchor           *AnchorError
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError extracts preflight details from a jsonrpc.RPCError.
// Returns nil when err carries no RPC error.
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) *Analysis {
	var rpcErr *jsonrpc.RPCError
	if err == nil || !errors.As(err, &rpcErr) {
		return nil
	}

	result := &Analysis{
		RPCCode: rpcErr.Code,
		Message: rpcErr.Message,
	}

	// Check if this is a transaction simulation error
	if strings.Contains(rpcErr.Message, "Transaction simulation failed") {
		result.SimulationFailed = true

		if dataMap, ok := rpcErr.Data.(map[string]interface{}); ok {
			if logs, ok := dataMap["logs"].([]interface{}); ok {
				for _, entry := range logs {
					if s, ok := entry.(string); ok {
						result.Logs = append(result.Logs, s)
					}
				}
			}
			if instrErr, ok := dataMap["err"]; ok {
				result.InstructionError = instrErr
			}
		}
		result.Anchor = ea.ParseLogs(result.Logs)
	}

	return result
}

// ParseLogs looks for an Anchor error or a custom program error code in program logs
func (ea *ErrorAnalyzer) ParseLogs(logs []string) *AnchorError {
	for _, line := range logs {
		if strings.Contains(line, "AnchorError") {
			anchorErr := parseAnchorErrorLog(line)
			ea.logger.Debug("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
			return &anchorErr
		}
	}
	for _, line := range logs {
		if code, ok := parseCustomErrorCode(line); ok {
			return &AnchorError{Code: code}
		}
	}
	return nil
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.SplitN(logStr, "Error Number:", 2); len(parts) == 2 {
		num := strings.TrimSpace(strings.SplitN(parts[1], ".", 2)[0])
		if n, err := strconv.Atoi(num); err == nil {
			result.Code = n
		}
	}

	if parts := strings.SplitN(logStr, "Error Code:", 2); len(parts) == 2 {
		result.Name = strings.TrimSpace(strings.SplitN(parts[1], ".", 2)[0])
	}

	if parts := strings.SplitN(logStr, "Error Message:", 2); len(parts) == 2 {
		result.Msg = strings.TrimSuffix(strings.TrimSpace(parts[1]), ".")
	}

	return result
}

// parseCustomErrorCode parses "Program X failed: custom program error: 0x1770"
func parseCustomErrorCode(line string) (int, bool) {
	const marker = "custom program error: "
	idx := strings.Index(line, marker)
	if idx < 0 {
		return 0, false
	}
	raw := strings.Fields(line[idx+len(marker):])
	if len(raw) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(raw[0], "0x"), 16, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// Describe formats the analysis for logging or display
func (a *Analysis) Describe() string {
	if a == nil {
		return ""
	}
	if a.Anchor != nil {
		return fmt.Sprintf("%s (code %d): %s", a.Anchor.Name, a.Anchor.Code, a.Anchor.Msg)
	}
	if a.InstructionError != nil {
		return fmt.Sprintf("%s: %v", a.Message, a.InstructionError)
	}
	return a.Message
}

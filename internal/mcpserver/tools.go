package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCP error codes.
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNoRunYet      = -32001 // No conversion has run in this session
)

// handleConvertDirectory handles the convert_directory tool invocation.
func (s *Server) handleConvertDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	inputDir := getStringDefault(args, "input_dir", "")
	outputDir := getStringDefault(args, "output_dir", "")

	if inputDir != "" {
		if err := validateDir(inputDir); err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid input_dir", map[string]interface{}{
				"param":  "input_dir",
				"reason": err.Error(),
			})
		}
	}

	result, summary, err := s.runConversion(ctx, inputDir, outputDir)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "conversion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"files_processed":  summary.FilesProcessed,
		"files_failed":     summary.FilesFailed,
		"notes_created":    summary.NotesCreated,
		"notes_written":    len(result.Written),
		"cache_hits":       summary.CacheHits,
		"cache_misses":     summary.CacheMisses,
		"provider_errors":  summary.ProviderErrors,
		"pair_comparisons": summary.PairComparisons,
		"elapsed_ms":       summary.Elapsed.Milliseconds(),
	}

	if len(summary.Failures) > 0 {
		failureCount := len(summary.Failures)
		if failureCount > 5 {
			response["failures"] = summary.Failures[:5]
			response["failure_count"] = failureCount
		} else {
			response["failures"] = summary.Failures
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleConversionStatus handles the conversion_status tool invocation.
func (s *Server) handleConversionStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	summary := s.lastSummary
	s.mu.Unlock()

	if summary == nil {
		return nil, newMCPError(ErrorCodeNoRunYet, "no conversion has run in this session", nil)
	}

	response := map[string]interface{}{
		"files_processed":    summary.FilesProcessed,
		"files_failed":       summary.FilesFailed,
		"notes_created":      summary.NotesCreated,
		"cache_hits":         summary.CacheHits,
		"cache_misses":       summary.CacheMisses,
		"cache_hit_rate":     summary.CacheHitRate(),
		"provider_errors":    summary.ProviderErrors,
		"category_fallbacks": summary.CategoryFallbacks,
		"pair_comparisons":   summary.PairComparisons,
		"top_categories":     summary.TopCategories(3),
		"top_tags":           summary.TopTags(5),
		"elapsed_ms":         summary.Elapsed.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validateDir checks that a path exists and is a readable directory.
func validateDir(path string) error {
	if !filepath.IsAbs(path) {
		return errors.New("path must be absolute")
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New("path does not exist")
	}
	if err != nil {
		return errors.New("path is not readable")
	}
	if !info.IsDir() {
		return errors.New("path is not a directory")
	}
	return nil
}

// formatJSON formats a map as indented JSON.
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringDefault extracts a string parameter with a default value.
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

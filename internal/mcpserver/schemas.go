package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// convertDirectoryTool returns the tool definition for convert_directory.
func convertDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "convert_directory",
		Description: "Convert a directory of plain-text files into a linked vault of atomic markdown notes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"input_dir": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory of text files to convert (defaults to the configured input dir)",
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path for the generated vault (defaults to the configured output dir)",
				},
			},
		},
	}
}

// conversionStatusTool returns the tool definition for conversion_status.
func conversionStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "conversion_status",
		Description: "Report statistics from the most recent conversion run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

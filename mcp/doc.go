// Package mcp contains the wire-level data types carried through the
// composition pipeline: tool, resource, resource template and prompt
// descriptors, content blocks, and the result envelopes for tool calls,
// resource reads and prompt renders. It mirrors the wire representation
// specified by the Model Context Protocol while keeping the surface
// Go-friendly (exported structs with json tags).
//
// The package is intentionally free of transport logic: transports import
// these types but implement their own framing, authentication and session
// handling. Likewise the higher-level component and server packages
// construct results using these concrete types and hand them to a transport
// for JSON-RPC serialization.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{mcp.TextContent("hello")},
//	}
package mcp

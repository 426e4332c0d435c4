package mcp

// Standard JSON-RPC 2.0 error codes, named the way the teacher's own
// mcpstdio adapter names them (pkg/adapter/mcpstdio/jsonrpc.go). mcp-go's
// server already maps a malformed call or unknown tool name onto these
// for us; these constants exist so a handler's own application-level
// failures (an unknown session id, a bad search query) can be reported
// with the matching standard code in their error message rather than an
// invented one.
const (
	errCodeInvalidParams = -32602
	errCodeInternalError = -32603
)

package event

import "strings"

// ToolCallArgs is the sum type of tool-call argument shapes. Classify
// (below) is the single place a raw (name, arguments) pair is mapped onto
// one of these variants; every other consumer of a ToolCallPayload
// switches over this closed interface rather than inspecting raw argument
// maps again.
type ToolCallArgs interface {
	// Name returns the literal tool name as the provider emitted it
	// (e.g. "Read", "mcp__github__create_issue", "execute_command").
	Name() string
	// ProviderCallID returns the provider's call identifier, or "" if the
	// provider does not assign one.
	ProviderCallID() string
	toolCallArgsMarker()
}

type baseArgs struct {
	name   string
	callID string
}

func (b baseArgs) Name() string           { return b.name }
func (b baseArgs) ProviderCallID() string { return b.callID }
func (baseArgs) toolCallArgsMarker()      {}

// FileReadArgs is a file-read or glob-style tool call.
type FileReadArgs struct {
	baseArgs
	Raw map[string]any
}

// Path returns the file or glob path, trying every field name a provider
// might use for it.
func (a FileReadArgs) Path() string {
	return firstString(a.Raw, "path", "file_path", "pattern")
}

// FileEditArgs is a targeted in-place file edit tool call.
type FileEditArgs struct {
	baseArgs
	Raw map[string]any
}

func (a FileEditArgs) Path() string { return firstString(a.Raw, "file_path", "path") }
func (a FileEditArgs) OldText() string {
	return firstString(a.Raw, "old_string", "old_text")
}
func (a FileEditArgs) NewText() string {
	return firstString(a.Raw, "new_string", "new_text")
}

// FileWriteArgs is a whole-file write/create tool call.
type FileWriteArgs struct {
	baseArgs
	Raw map[string]any
}

func (a FileWriteArgs) Path() string    { return firstString(a.Raw, "file_path", "path") }
func (a FileWriteArgs) Content() string { return firstString(a.Raw, "content", "contents") }

// ExecuteArgs is a shell/process execution tool call.
type ExecuteArgs struct {
	baseArgs
	Raw map[string]any
}

func (a ExecuteArgs) Command() string {
	return firstString(a.Raw, "command", "cmd", "script")
}
func (a ExecuteArgs) Description() string { return firstString(a.Raw, "description") }

// SearchArgs is a content/web search tool call (grep, glob-search,
// web search/fetch).
type SearchArgs struct {
	baseArgs
	Raw map[string]any
}

func (a SearchArgs) Query() string {
	return firstString(a.Raw, "pattern", "query", "url")
}

// McpArgs is a tool call routed through the Model Context Protocol, whose
// name is always of the form "mcp__<server>__<tool>".
type McpArgs struct {
	baseArgs
	Raw map[string]any
}

// ParseMcpName splits a raw "mcp__server__tool" name into its server and
// tool components. ok is false if name does not follow the mcp__ prefix
// convention.
func ParseMcpName(name string) (server, tool string, ok bool) {
	const prefix = "mcp__"
	if !strings.HasPrefix(name, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, prefix)
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ServerName returns the MCP server component of the call's name.
func (a McpArgs) ServerName() string {
	server, _, _ := ParseMcpName(a.name)
	return server
}

// ToolName returns the MCP tool component of the call's name (the part
// after the server prefix).
func (a McpArgs) ToolName() string {
	_, tool, _ := ParseMcpName(a.name)
	return tool
}

// GenericArgs is any tool call that does not match a more specific
// classification.
type GenericArgs struct {
	baseArgs
	Raw map[string]any
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Classify maps a raw tool name plus its argument map onto the
// ToolCallArgs variant it represents. This is the single normalization
// point every provider decoder funnels tool calls through, so new
// providers only need to supply (name, arguments, providerCallID) in the
// provider's own vocabulary.
func Classify(name string, arguments map[string]any, providerCallID string) ToolCallArgs {
	base := baseArgs{name: name, callID: providerCallID}
	switch name {
	case "Read", "Glob":
		return FileReadArgs{baseArgs: base, Raw: arguments}
	case "Edit":
		return FileEditArgs{baseArgs: base, Raw: arguments}
	case "Write":
		return FileWriteArgs{baseArgs: base, Raw: arguments}
	case "Bash", "KillShell", "BashOutput", "shell", "local_shell", "exec_command":
		return ExecuteArgs{baseArgs: base, Raw: arguments}
	case "Grep", "WebSearch", "WebFetch":
		return SearchArgs{baseArgs: base, Raw: arguments}
	}
	if strings.HasPrefix(name, "mcp__") {
		return McpArgs{baseArgs: base, Raw: arguments}
	}
	return GenericArgs{baseArgs: base, Raw: arguments}
}

// ReclassifyShellCommand inspects the literal shell command an Execute
// call ran and promotes it to FileRead or Search when the command is a
// read-only or pattern-search primitive — Codex routes ordinary file
// reads and greps through its one shell-execution tool, so the tool name
// alone carries no read/write/search signal the way Claude's structured
// Read/Edit/Grep tools do. A single "bash -lc <cmd>" or "bash -c <cmd>"
// wrapper is unwrapped before classifying; anything else (writes, builds,
// installs) is left as Execute.
func ReclassifyShellCommand(a ExecuteArgs) ToolCallArgs {
	cmd := strings.TrimSpace(a.Command())
	considered := cmd
	if inner, ok := extractBashInnerCommand(cmd); ok {
		considered = strings.TrimSpace(inner)
	}
	first := firstWord(considered)

	switch {
	case isSearchCommand(considered, first):
		raw := cloneRaw(a.Raw)
		if p := extractSearchPattern(considered); p != "" {
			raw["pattern"] = p
		}
		return SearchArgs{baseArgs: a.baseArgs, Raw: raw}
	case isReadCommand(considered, first):
		raw := cloneRaw(a.Raw)
		if p := extractFilePath(considered); p != "" {
			raw["path"] = p
		}
		return FileReadArgs{baseArgs: a.baseArgs, Raw: raw}
	default:
		return a
	}
}

func firstWord(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// extractBashInnerCommand pulls the inner command out of a single
// "bash -lc <cmd>" or "bash -c <cmd>" wrapper.
func extractBashInnerCommand(cmd string) (string, bool) {
	if firstWord(cmd) != "bash" {
		return "", false
	}
	if idx := strings.Index(cmd, "-lc"); idx >= 0 {
		return strings.TrimSpace(cmd[idx+len("-lc"):]), true
	}
	if idx := strings.Index(cmd, "-c"); idx >= 0 {
		return strings.TrimSpace(cmd[idx+len("-c"):]), true
	}
	return "", false
}

// hasOption reports whether cmd contains option as a standalone word or as
// the start of a longer flag (e.g. "-i" matches "-i.bak" but not a path
// like "extension-inspector").
func hasOption(cmd, option string) bool {
	for _, word := range strings.Fields(cmd) {
		if word == option {
			return true
		}
		if strings.HasPrefix(word, option) && len(word) > len(option) {
			next := word[len(option)]
			if !isAlnumByte(next) {
				return true
			}
		}
	}
	return false
}

func isAlnumByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isSearchCommand(cmd, first string) bool {
	switch first {
	case "grep", "ag", "ack":
		return true
	case "rg":
		return !hasOption(cmd, "--files") && !hasOption(cmd, "-l") && !hasOption(cmd, "--files-with-matches")
	case "bash":
		if inner, ok := extractBashInnerCommand(cmd); ok {
			return isSearchCommand(inner, firstWord(inner))
		}
		return false
	default:
		return false
	}
}

func isReadCommand(cmd, first string) bool {
	switch first {
	case "cat", "head", "tail", "less", "more":
		return true
	case "ls", "find", "tree", "fd":
		return true
	case "rg":
		return hasOption(cmd, "--files") || hasOption(cmd, "-l") || hasOption(cmd, "--files-with-matches")
	case "wc", "diff", "stat", "file":
		return true
	case "sed":
		return !hasOption(cmd, "-i") && !hasOption(cmd, "--in-place")
	case "awk":
		return !strings.Contains(cmd, ">")
	case "bash":
		if inner, ok := extractBashInnerCommand(cmd); ok {
			return isReadCommand(inner, firstWord(inner))
		}
		return false
	default:
		return false
	}
}

// extractFilePath best-effort recovers the file a read-shaped shell
// command targets, for populating FileReadArgs.Path().
func extractFilePath(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "cat", "head", "tail", "less", "more", "wc", "file":
		for i := len(fields) - 1; i >= 0; i-- {
			if !strings.HasPrefix(fields[i], "-") {
				return fields[i]
			}
		}
	case "sed":
		for i := len(fields) - 1; i >= 0; i-- {
			p := fields[i]
			if !strings.HasPrefix(p, "-") && !strings.Contains(p, ",") && p != "sed" {
				return p
			}
		}
	case "grep", "rg", "ag", "ack":
		if len(fields) >= 3 {
			return fields[2]
		}
	case "bash":
		if inner, ok := extractBashInnerCommand(cmd); ok {
			return extractFilePath(inner)
		}
	}
	return ""
}

// extractSearchPattern best-effort recovers the pattern a search-shaped
// shell command looks for, for populating SearchArgs.Query().
func extractSearchPattern(cmd string) string {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	first := fields[0]
	switch first {
	case "grep", "rg", "ag", "ack":
		rest := strings.TrimSpace(strings.TrimPrefix(cmd, first))
		parts := strings.Fields(rest)
		i := 0
		for i < len(parts) && strings.HasPrefix(parts[i], "-") {
			i++
		}
		if i >= len(parts) {
			return ""
		}
		remainder := strings.Join(parts[i:], " ")
		if strings.HasPrefix(remainder, `"`) {
			if end := strings.Index(remainder[1:], `"`); end >= 0 {
				return remainder[1 : 1+end]
			}
		}
		if strings.HasPrefix(remainder, "'") {
			if end := strings.Index(remainder[1:], "'"); end >= 0 {
				return remainder[1 : 1+end]
			}
		}
		if rf := strings.Fields(remainder); len(rf) > 0 {
			return rf[0]
		}
	case "bash":
		if inner, ok := extractBashInnerCommand(cmd); ok {
			return extractSearchPattern(inner)
		}
	}
	return ""
}

func cloneRaw(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+1)
	for k, v := range raw {
		out[k] = v
	}
	return out
}

// ClassifyOrigin reports whether args came from a provider's built-in tool
// set or from an MCP server.
func ClassifyOrigin(args ToolCallArgs) ToolOrigin {
	if _, ok := args.(McpArgs); ok {
		return ToolOriginMcp
	}
	return ToolOriginSystem
}

// ClassifyKind projects a ToolCallArgs variant onto the coarser ToolKind
// bucket used by analysis and session summaries.
func ClassifyKind(args ToolCallArgs) ToolKind {
	switch v := args.(type) {
	case FileReadArgs:
		return ToolKindRead
	case FileEditArgs:
		return ToolKindWrite
	case FileWriteArgs:
		return ToolKindWrite
	case ExecuteArgs:
		return ToolKindExecute
	case SearchArgs:
		return ToolKindSearch
	case McpArgs:
		return classifyMcpKind(v)
	default:
		return classifyGenericKind(v.Name())
	}
}

func classifyMcpKind(a McpArgs) ToolKind {
	return classifyGenericKind(a.ToolName())
}

// classifyGenericKind applies shell-command-style name heuristics to tool
// names that carry no structural type information (generic and MCP-routed
// tools), so search/read/write-shaped MCP tools still land in a useful
// bucket instead of always falling to Other.
func classifyGenericKind(name string) ToolKind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "plan") || strings.Contains(lower, "todo"):
		return ToolKindPlan
	case strings.Contains(lower, "ask") || strings.Contains(lower, "confirm"):
		return ToolKindAsk
	case strings.Contains(lower, "search") || strings.Contains(lower, "find") || strings.Contains(lower, "grep") || strings.Contains(lower, "list"):
		return ToolKindSearch
	case strings.Contains(lower, "write") || strings.Contains(lower, "edit") || strings.Contains(lower, "create") || strings.Contains(lower, "delete") || strings.Contains(lower, "update"):
		return ToolKindWrite
	case strings.Contains(lower, "read") || strings.Contains(lower, "get") || strings.Contains(lower, "fetch"):
		return ToolKindRead
	case strings.Contains(lower, "exec") || strings.Contains(lower, "run") || strings.Contains(lower, "command"):
		return ToolKindExecute
	default:
		return ToolKindOther
	}
}

// SummarizeArgs renders a short, human-readable one-line summary of a tool
// call's arguments for use in session/turn listings and MCP tool
// responses. It never includes full file contents or command output.
func SummarizeArgs(args ToolCallArgs) string {
	switch a := args.(type) {
	case FileReadArgs:
		return a.Path()
	case FileEditArgs:
		return a.Path()
	case FileWriteArgs:
		return a.Path()
	case ExecuteArgs:
		return truncate(a.Command(), 200)
	case SearchArgs:
		return a.Query()
	case McpArgs:
		return a.ServerName() + "/" + a.ToolName()
	default:
		return args.Name()
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

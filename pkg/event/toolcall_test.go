package event

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		want ToolKind
		typ  string
	}{
		{"Read", ToolKindRead, "event.FileReadArgs"},
		{"Glob", ToolKindRead, "event.FileReadArgs"},
		{"Edit", ToolKindWrite, "event.FileEditArgs"},
		{"Write", ToolKindWrite, "event.FileWriteArgs"},
		{"Bash", ToolKindExecute, "event.ExecuteArgs"},
		{"KillShell", ToolKindExecute, "event.ExecuteArgs"},
		{"BashOutput", ToolKindExecute, "event.ExecuteArgs"},
		{"Grep", ToolKindSearch, "event.SearchArgs"},
		{"WebSearch", ToolKindSearch, "event.SearchArgs"},
		{"mcp__github__create_issue", ToolKindWrite, "event.McpArgs"},
		{"some_custom_tool", ToolKindOther, "event.GenericArgs"},
	}

	for _, tc := range cases {
		args := Classify(tc.name, map[string]any{}, "")
		if got := args.Name(); got != tc.name {
			t.Fatalf("Name() = %q, want %q", got, tc.name)
		}
		if got := ClassifyKind(args); got != tc.want {
			t.Errorf("%s: ClassifyKind() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassifyOrigin(t *testing.T) {
	mcp := Classify("mcp__github__create_issue", nil, "")
	if ClassifyOrigin(mcp) != ToolOriginMcp {
		t.Errorf("expected mcp origin")
	}
	sys := Classify("Read", nil, "")
	if ClassifyOrigin(sys) != ToolOriginSystem {
		t.Errorf("expected system origin")
	}
}

func TestParseMcpName(t *testing.T) {
	server, tool, ok := ParseMcpName("mcp__github__create_issue")
	if !ok || server != "github" || tool != "create_issue" {
		t.Fatalf("got (%q, %q, %v)", server, tool, ok)
	}

	_, _, ok = ParseMcpName("Read")
	if ok {
		t.Fatalf("expected ok=false for non-mcp name")
	}
}

func TestFileReadArgsPathFallback(t *testing.T) {
	a := Classify("Read", map[string]any{"file_path": "x.go"}, "").(FileReadArgs)
	if a.Path() != "x.go" {
		t.Fatalf("got %q", a.Path())
	}

	b := Classify("Glob", map[string]any{"pattern": "**/*.go"}, "").(FileReadArgs)
	if b.Path() != "**/*.go" {
		t.Fatalf("got %q", b.Path())
	}
}

func TestReclassifyShellCommand(t *testing.T) {
	cases := []struct {
		name    string
		command string
		want    string // "read", "search", or "execute"
	}{
		{"cat", "cat README.md", "read"},
		{"head", "head -n 20 file.go", "read"},
		{"tail", "tail -f server.log", "read"},
		{"ls", "ls -la /tmp", "read"},
		{"find", "find . -name '*.go'", "read"},
		{"wc", "wc -l file.go", "read"},
		{"diff", "diff a.go b.go", "read"},
		{"stat", "stat file.go", "read"},
		{"sed readonly", "sed -n '1,200p' packages/extension-inspector/main.go", "read"},
		{"sed in-place", "sed -i 's/foo/bar/' file.go", "execute"},
		{"sed long in-place flag", "sed --in-place 's/foo/bar/' file.go", "execute"},
		{"awk print", "awk '{print $1}' file.go", "read"},
		{"awk redirect", "awk '{print $1}' file.go > out.txt", "execute"},
		{"rg list files", "rg --files -g '*.go'", "read"},
		{"rg -l", "rg -l TODO", "read"},
		{"grep", "grep -rn TODO .", "search"},
		{"ag", "ag TODO", "search"},
		{"ack", "ack TODO", "search"},
		{"rg pattern", "rg TODO src/", "search"},
		{"bash -lc wraps read", "bash -lc cat file.txt", "read"},
		{"bash -lc wraps sed read", "bash -lc sed -n '1,100p' file.txt", "read"},
		{"bash -c wraps search", "bash -c grep -rn TODO dir", "search"},
		{"write stays execute", "echo hi > out.txt", "execute"},
		{"install stays execute", "npm install", "execute"},
		{"build stays execute", "go build ./...", "execute"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := Classify("shell", map[string]any{"command": tc.command}, "c1").(ExecuteArgs)
			got := ReclassifyShellCommand(exec)
			switch tc.want {
			case "read":
				if _, ok := got.(FileReadArgs); !ok {
					t.Fatalf("command %q: got %T, want FileReadArgs", tc.command, got)
				}
			case "search":
				if _, ok := got.(SearchArgs); !ok {
					t.Fatalf("command %q: got %T, want SearchArgs", tc.command, got)
				}
			case "execute":
				if _, ok := got.(ExecuteArgs); !ok {
					t.Fatalf("command %q: got %T, want ExecuteArgs", tc.command, got)
				}
			}
		})
	}
}

func TestReclassifyShellCommandDerivesPathAndPattern(t *testing.T) {
	read := Classify("shell", map[string]any{"command": "cat src/main.go"}, "").(ExecuteArgs)
	gotRead := ReclassifyShellCommand(read).(FileReadArgs)
	if gotRead.Path() != "src/main.go" {
		t.Fatalf("Path() = %q, want %q", gotRead.Path(), "src/main.go")
	}

	search := Classify("shell", map[string]any{"command": "grep -rn TODO ."}, "").(ExecuteArgs)
	gotSearch := ReclassifyShellCommand(search).(SearchArgs)
	if gotSearch.Query() != "TODO" {
		t.Fatalf("Query() = %q, want %q", gotSearch.Query(), "TODO")
	}
}

func TestSummarizeArgsTruncatesLongCommands(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	a := Classify("Bash", map[string]any{"command": string(long)}, "").(ExecuteArgs)
	summary := SummarizeArgs(a)
	if len(summary) > 200+len("…") {
		t.Fatalf("expected truncated summary, got length %d", len(summary))
	}
}

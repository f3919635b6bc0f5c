package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/heapscope/pkg/errors"
	"github.com/matzehuels/heapscope/pkg/heap"
)

const sampleDump = `{
  "objects": [
    {"id": 100, "type": "MyApp.Cache", "size": 64, "addr": 4096, "refs": [200, 300]},
    {"id": 200, "type": "System.String", "size": 24, "addr": 4160},
    {"id": 300, "type": "System.String", "size": 32, "addr": 4224}
  ],
  "roots": [100],
  "counters": {"gc.collections": 3}
}`

func TestJSONParserParse(t *testing.T) {
	p := &JSONParser{}
	g, counters, err := p.Parse(strings.NewReader(sampleDump))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// 3 objects plus the synthetic root.
	if g.NumNodes() != 4 {
		t.Errorf("NumNodes = %d, want 4", g.NumNodes())
	}

	root := g.Root()
	if g.Size(root) != 0 {
		t.Errorf("root size = %d, want 0", g.Size(root))
	}
	if name := g.TypeName(g.TypeOf(root)); name != "[.NET Roots]" {
		t.Errorf("root type = %q, want [.NET Roots]", name)
	}

	rootChildren := g.Children(root)
	if len(rootChildren) != 1 || rootChildren[0] != 0 {
		t.Errorf("root children = %v, want [0]", rootChildren)
	}

	// Object ids map to handles in file order.
	if name := g.TypeName(g.TypeOf(0)); name != "MyApp.Cache" {
		t.Errorf("node 0 type = %q, want MyApp.Cache", name)
	}
	children := g.Children(0)
	if len(children) != 2 || children[0] != 1 || children[1] != 2 {
		t.Errorf("node 0 children = %v, want [1 2]", children)
	}
	if g.Size(2) != 32 {
		t.Errorf("node 2 size = %d, want 32", g.Size(2))
	}
	if g.Address(1) != 4160 {
		t.Errorf("node 1 addr = %d, want 4160", g.Address(1))
	}

	// Shared type names collapse to one handle.
	if g.TypeOf(1) != g.TypeOf(2) {
		t.Error("String nodes should share a type handle")
	}

	if counters["gc.collections"] != 3 {
		t.Errorf("counters = %v, want gc.collections=3", counters)
	}
}

func TestJSONParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{
			name:  "malformed JSON",
			input: `{"objects": [`,
			code:  errors.ErrCodeInvalidDump,
		},
		{
			name:  "no objects",
			input: `{"objects": [], "roots": [1]}`,
			code:  errors.ErrCodeInvalidDump,
		},
		{
			name:  "no roots",
			input: `{"objects": [{"id": 1, "type": "A", "size": 8}], "roots": []}`,
			code:  errors.ErrCodeInvalidDump,
		},
		{
			name: "duplicate id",
			input: `{"objects": [
				{"id": 1, "type": "A", "size": 8},
				{"id": 1, "type": "B", "size": 8}
			], "roots": [1]}`,
			code: errors.ErrCodeInvalidDump,
		},
		{
			name:  "dangling reference",
			input: `{"objects": [{"id": 1, "type": "A", "size": 8, "refs": [99]}], "roots": [1]}`,
			code:  errors.ErrCodeInvalidDump,
		},
		{
			name:  "dangling root",
			input: `{"objects": [{"id": 1, "type": "A", "size": 8}], "roots": [99]}`,
			code:  errors.ErrCodeInvalidDump,
		},
	}

	p := &JSONParser{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Parse(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %v, want %v", got, tt.code)
			}
		})
	}
}

func TestJSONParserCanParse(t *testing.T) {
	p := &JSONParser{}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid dump", sampleDump, true},
		{"objects key only", `{"objects": []}`, true},
		{"empty", "", false},
		{"not json", "PID: 1234\nHEAP DUMP v2\n", false},
		{"json without objects", `{"nodes": []}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(strings.NewReader(tt.input)); got != tt.want {
				t.Errorf("CanParse = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenDetectsFormat(t *testing.T) {
	g, _, err := Open(strings.NewReader(sampleDump), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if g.NumNodes() != 4 {
		t.Errorf("NumNodes = %d, want 4", g.NumNodes())
	}
}

func TestOpenExplicitFormat(t *testing.T) {
	if _, _, err := Open(strings.NewReader(sampleDump), "json"); err != nil {
		t.Fatalf("Open with explicit format: %v", err)
	}

	_, _, err := Open(strings.NewReader(sampleDump), "protobuf")
	if !errors.Is(err, errors.ErrCodeUnsupportedFormat) {
		t.Errorf("unknown format error = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestOpenNoParser(t *testing.T) {
	_, _, err := Open(strings.NewReader("garbage input"), "")
	if !errors.Is(err, errors.ErrCodeUnsupportedFormat) {
		t.Errorf("error = %v, want UNSUPPORTED_FORMAT", err)
	}
}

func TestLoadBuildsSnapshot(t *testing.T) {
	path := writeTempDump(t, sampleDump)

	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	stats := s.HeapStatistics()
	if stats.TotalObjects != 3 {
		t.Errorf("TotalObjects = %d, want 3", stats.TotalObjects)
	}
	if stats.TotalShallow != 120 {
		t.Errorf("TotalShallow = %d, want 120", stats.TotalShallow)
	}
	if stats.Counters["gc.collections"] != 3 {
		t.Errorf("counters = %v, want gc.collections=3", stats.Counters)
	}

	// The cache object dominates both strings.
	if got := s.RetainedSize(0); got != 120 {
		t.Errorf("retained[0] = %d, want 120", got)
	}
	if got := s.ImmediateDominator(1); got != heap.NodeID(0) {
		t.Errorf("idom[1] = %d, want 0", got)
	}
}

func writeTempDump(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dump.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does/not/exist.json", "")
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

package heap

import (
	"errors"
	"testing"
)

func TestBuilderValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		wantErr error
	}{
		{
			name:    "NoNodes",
			build:   func() *Builder { return NewBuilder() },
			wantErr: ErrNoNodes,
		},
		{
			name: "NoRoot",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("A")
				b.AddNode(ty, 1, 0, nil)
				return b
			},
			wantErr: ErrNoRoot,
		},
		{
			name: "RootOutOfRange",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("A")
				b.AddNode(ty, 1, 0, nil)
				b.SetRoot(7)
				return b
			},
			wantErr: ErrRootOutOfRange,
		},
		{
			name: "ChildOutOfRange",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("A")
				b.AddNode(ty, 1, 0, []NodeID{3})
				b.SetRoot(0)
				return b
			},
			wantErr: ErrChildOutOfRange,
		},
		{
			name: "TypeOutOfRange",
			build: func() *Builder {
				b := NewBuilder()
				b.AddNode(TypeID(5), 1, 0, nil)
				b.SetRoot(0)
				return b
			},
			wantErr: ErrTypeOutOfRange,
		},
		{
			name: "EmptyTypeName",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("")
				b.AddNode(ty, 1, 0, nil)
				b.SetRoot(0)
				return b
			},
			wantErr: ErrEmptyTypeName,
		},
		{
			name: "SizeOverflow",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("A")
				b.AddNode(ty, ^uint64(0), 0, nil)
				b.AddNode(ty, 1, 0, nil)
				b.SetRoot(0)
				return b
			},
			wantErr: ErrSizeOverflow,
		},
		{
			name: "Valid",
			build: func() *Builder {
				b := NewBuilder()
				ty := b.AddType("A")
				b.AddNode(ty, 1, 0, []NodeID{1})
				b.AddNode(ty, 2, 0, nil)
				b.SetRoot(0)
				return b
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.build().Build()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Build error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if g == nil {
				t.Fatal("Build returned nil graph without error")
			}
		})
	}
}

func TestGraphAccessors(t *testing.T) {
	b := NewBuilderSized(3, 2)
	ta := b.AddType("pkg.Alpha")
	tb := b.AddType("pkg.Beta")
	b.AddNode(ta, 0, 0xdead, []NodeID{1, 2})
	b.AddNode(tb, 16, 0xbeef, nil)
	b.AddNode(tb, 24, 0xcafe, nil)
	b.SetRoot(0)

	g, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.NumNodes() != 3 {
		t.Errorf("NumNodes = %d, want 3", g.NumNodes())
	}
	if g.NumTypes() != 2 {
		t.Errorf("NumTypes = %d, want 2", g.NumTypes())
	}
	if g.NumEdges() != 2 {
		t.Errorf("NumEdges = %d, want 2", g.NumEdges())
	}
	if g.Root() != 0 {
		t.Errorf("Root = %d, want 0", g.Root())
	}
	if g.TypeOf(1) != tb {
		t.Errorf("TypeOf(1) = %d, want %d", g.TypeOf(1), tb)
	}
	if g.TypeName(ta) != "pkg.Alpha" {
		t.Errorf("TypeName = %q, want pkg.Alpha", g.TypeName(ta))
	}
	if g.Size(2) != 24 {
		t.Errorf("Size(2) = %d, want 24", g.Size(2))
	}
	if g.Address(1) != 0xbeef {
		t.Errorf("Address(1) = %#x, want 0xbeef", g.Address(1))
	}

	children := g.Children(0)
	if len(children) != 2 || children[0] != 1 || children[1] != 2 {
		t.Errorf("Children(0) = %v, want [1 2]", children)
	}
	if got := g.Children(1); len(got) != 0 {
		t.Errorf("Children(1) = %v, want empty", got)
	}
}

func TestChildIter(t *testing.T) {
	g := buildTestGraph(t, []nodeSpec{
		{typ: "R", size: 0, children: []NodeID{1, 2, 1}},
		{typ: "A", size: 1},
		{typ: "A", size: 1},
	}, 0)

	it := g.ChildIterOf(0)
	var got []NodeID
	for c := it.Next(); c != InvalidNode; c = it.Next() {
		got = append(got, c)
	}
	want := []NodeID{1, 2, 1}
	if len(got) != len(want) {
		t.Fatalf("iterated %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d = %d, want %d", i, got[i], want[i])
		}
	}

	it.Reset()
	if c := it.Next(); c != 1 {
		t.Errorf("after Reset, Next = %d, want 1", c)
	}
}

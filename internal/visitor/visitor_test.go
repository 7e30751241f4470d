package visitor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	name     string
	children []*node
}

func kids(n *node) []*node { return n.children }

// tree:
//
//	root
//	  a
//	    a1 a2
//	  b
//	    b1
func fixture() *node {
	return &node{name: "root", children: []*node{
		{name: "a", children: []*node{{name: "a1"}, {name: "a2"}}},
		{name: "b", children: []*node{{name: "b1"}}},
	}}
}

func record(events *[]string, tag string) func(*node) error {
	return func(n *node) error {
		*events = append(*events, tag+":"+n.name)
		return nil
	}
}

func TestWalkAboutOrder(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: record(&events, "enter"),
		OnLeave: record(&events, "leave"),
	}
	require.NoError(t, WalkAbout(fixture(), v, kids))
	assert.Equal(t, []string{
		"enter:root",
		"enter:a", "enter:a1", "leave:a1", "enter:a2", "leave:a2", "leave:a",
		"enter:b", "enter:b1", "leave:b1", "leave:b",
		"leave:root",
	}, events)
}

func TestWalkSkipsLeaveHooks(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: record(&events, "enter"),
		OnLeave: record(&events, "leave"),
	}
	require.NoError(t, Walk(fixture(), v, kids))
	assert.Equal(t, []string{"enter:root", "enter:a", "enter:a1", "enter:a2", "enter:b", "enter:b1"}, events)
}

func TestSkipChildren(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: func(n *node) error {
			events = append(events, "enter:"+n.name)
			if n.name == "a" {
				return SkipChildren
			}
			return nil
		},
		OnLeave: record(&events, "leave"),
	}
	require.NoError(t, WalkAbout(fixture(), v, kids))
	assert.Contains(t, events, "leave:a", "a's own departure still runs")
	assert.NotContains(t, events, "enter:a1")
	assert.Contains(t, events, "enter:b1")
}

func TestSkipNode(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: func(n *node) error {
			events = append(events, "enter:"+n.name)
			if n.name == "a" {
				return SkipNode
			}
			return nil
		},
		OnLeave: record(&events, "leave"),
	}
	require.NoError(t, WalkAbout(fixture(), v, kids))
	assert.NotContains(t, events, "enter:a1")
	assert.NotContains(t, events, "leave:a")
	assert.Contains(t, events, "enter:b")
}

func TestSkipSiblings(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: func(n *node) error {
			events = append(events, "enter:"+n.name)
			if n.name == "a" {
				return SkipSiblings
			}
			return nil
		},
	}
	require.NoError(t, WalkAbout(fixture(), v, kids))
	assert.NotContains(t, events, "enter:b", "right-hand siblings are pruned")
	assert.Contains(t, events, "enter:root")
}

func TestSkipDeparture(t *testing.T) {
	var events []string
	v := Funcs[*node]{
		OnEnter: func(n *node) error {
			events = append(events, "enter:"+n.name)
			if n.name == "a" {
				return SkipDeparture
			}
			return nil
		},
		OnLeave: record(&events, "leave"),
	}
	require.NoError(t, WalkAbout(fixture(), v, kids))
	assert.Contains(t, events, "enter:a1", "children still run")
	assert.NotContains(t, events, "leave:a")
}

func TestWalkPropagatesRealErrors(t *testing.T) {
	boom := errors.New("boom")
	v := Funcs[*node]{
		OnEnter: func(n *node) error {
			if n.name == "a1" {
				return boom
			}
			return nil
		},
	}
	assert.ErrorIs(t, Walk(fixture(), v, kids), boom)
}

func TestExtensibleOrdering(t *testing.T) {
	var events []string
	main := Funcs[*node]{OnEnter: record(&events, "main")}
	before := ExtFuncs[*node]{Funcs: Funcs[*node]{OnEnter: record(&events, "before")}, Position: Before}
	after := ExtFuncs[*node]{Funcs: Funcs[*node]{OnEnter: record(&events, "after")}, Position: After}

	e := NewExtensible[*node](main, after)
	e.Add(before)

	single := &node{name: "n"}
	require.NoError(t, Walk(single, e, kids))
	assert.Equal(t, []string{"before:n", "main:n", "after:n"}, events)
}

func TestExtensiblePruningWins(t *testing.T) {
	var events []string
	main := Funcs[*node]{OnEnter: record(&events, "main")}
	pruner := ExtFuncs[*node]{
		Funcs:    Funcs[*node]{OnEnter: func(*node) error { return SkipChildren }},
		Position: Before,
	}

	e := NewExtensible[*node](main, pruner)
	require.NoError(t, WalkAbout(fixture(), e, kids))
	assert.Equal(t, []string{"main:root"}, events, "the extension's sentinel prunes the whole subtree")
}

package gen

import (
	"iter"

	"github.com/rogpeppe/genprob/trie"
)

// AddrMask is a hierarchical set of addresses selecting a subset
// of a trace's choices, typically the ones eligible for
// regeneration. Selecting an address selects the whole subtree of
// choices below it. Addresses use the same grammar as package
// trie. The zero value and a nil mask both select nothing.
type AddrMask struct {
	sel      bool
	children map[string]*AddrMask
}

// NewAddrMask returns a mask selecting the given addresses.
func NewAddrMask(addrs ...string) (*AddrMask, error) {
	m := &AddrMask{}
	for _, a := range addrs {
		if err := m.Add(a); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add selects addr and, implicitly, everything below it.
func (m *AddrMask) Add(addr string) error {
	comps, err := trie.ParseAddr(addr)
	if err != nil {
		return err
	}
	n := m
	for _, c := range comps {
		child, ok := n.children[c]
		if !ok {
			child = &AddrMask{}
			if n.children == nil {
				n.children = make(map[string]*AddrMask)
			}
			n.children[c] = child
		}
		n = child
	}
	n.sel = true
	return nil
}

// Covers reports whether addr is selected by the mask, either
// directly or because one of its ancestors is. A malformed
// address is covered by nothing.
func (m *AddrMask) Covers(addr string) bool {
	if m == nil {
		return false
	}
	comps, err := trie.ParseAddr(addr)
	if err != nil {
		return false
	}
	n := m
	for _, c := range comps {
		if n.sel {
			return true
		}
		child, ok := n.children[c]
		if !ok {
			return false
		}
		n = child
	}
	return n.sel
}

// Subtree returns the mask below the given component, or nil if
// nothing below it is selected. When the receiver node is itself
// selected the whole subtree is selected, and Subtree returns a
// mask whose root is selected.
func (m *AddrMask) Subtree(component string) *AddrMask {
	if m == nil {
		return nil
	}
	if m.sel {
		return &AddrMask{sel: true}
	}
	return m.children[component]
}

// Selected reports whether the mask's root node itself is
// selected.
func (m *AddrMask) Selected() bool {
	return m != nil && m.sel
}

// IsEmpty reports whether the mask selects nothing at all.
func (m *AddrMask) IsEmpty() bool {
	if m == nil {
		return true
	}
	if m.sel {
		return false
	}
	for _, c := range m.children {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// All returns an iterator over the selected addresses, each the
// root of a selected subtree. The iteration order is unspecified.
func (m *AddrMask) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		m.all("", yield)
	}
}

func (m *AddrMask) all(prefix string, yield func(string) bool) bool {
	if m == nil {
		return true
	}
	if m.sel && prefix != "" {
		return yield(prefix)
	}
	for k, c := range m.children {
		addr := k
		if prefix != "" {
			addr = prefix + trie.Separator + k
		}
		if !c.all(addr, yield) {
			return false
		}
	}
	return true
}

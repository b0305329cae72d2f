package utils

import (
	"github.com/exascience/pargo/sync"

	"github.com/3dgenomes/hicprep/internal"
)

type symbolName string

// A Symbol is a unique pointer to a string. SAM optional field tags
// are interned as symbols so that tag lookups are pointer
// comparisons.
type Symbol *string

func (s symbolName) Hash() uint64 {
	return internal.StringHash(string(s))
}

var symbolTable = sync.NewMap(0)

/*
Intern returns a Symbol for the given string.

It always returns the same pointer for strings that are equal, and
different pointers for strings that are not equal, so *Intern(s) == s
always holds.

It is safe for multiple goroutines to call Intern concurrently, which
happens when alignment batches are parsed in parallel.
*/
func Intern(s string) Symbol {
	entry, _ := symbolTable.LoadOrStore(symbolName(s), Symbol(&s))
	return entry.(Symbol)
}

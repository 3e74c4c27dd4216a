/*
Copyright 2021 by Milo Christiansen

This software is provided 'as-is', without any express or implied warranty. In
no event will the authors be held liable for any damages arising from the use of
this software.

Permission is granted to anyone to use this software for any purpose, including
commercial applications, and to alter it and redistribute it freely, subject to
the following restrictions:

1. The origin of this software must not be misrepresented; you must not claim
that you wrote the original software. If you use this software in a product, an
acknowledgment in the product documentation would be appreciated but is not
required.

2. Altered source versions must be plainly marked as such, and must not be
misrepresented as being the original software.

3. This notice may not be removed or altered from any source distribution.
*/

package ledger

import "io"

// WriteLedgerFile writes out a ledger file, interleaving the transactions and directives
// according to the "FoundBefore" values in the directives. trs is written in slice order;
// drs is sorted in place on its FoundBefore values. This is a thin wrapper
// around File.Format for callers that don't otherwise need a File value.
func WriteLedgerFile(w io.Writer, trs []Transaction, drs []Directive) error {
	f := &File{T: trs, D: drs}
	return f.Format(w)
}

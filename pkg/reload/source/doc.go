// Package source locates the current text of a single Go definition inside a
// script file on disk.
//
// The file is parsed with go/parser on every call, so edits made between two
// reloads (reordered declarations, new helpers, blank lines) never confuse the
// lookup. Nothing is cached.
//
// # Kinds
//
// KindFunction matches a top-level function declaration without receiver.
//
// KindClass matches a type declaration. For a top-level type the fragment also
// carries every method declared on the type and its New<Type> constructor, so
// the fragment is the whole "class" in one piece:
//
//	//reloadr:reload
//	type Counter struct {
//	    N int
//	}
//
//	func NewCounter(start int) *Counter { return &Counter{N: start} }
//
//	func (c *Counter) Inc() int { c.N++; return c.N }
//
// Type declarations nested in function bodies are searched only when no
// top-level type matches.
//
// # Errors
//
// ParseError is returned when the file cannot be read or parsed, typically a
// save caught half way. NotFoundError is returned when no definition with the
// requested name and kind exists, for example after a rename. Callers treat
// both the same way: keep the previous definition running.
package source

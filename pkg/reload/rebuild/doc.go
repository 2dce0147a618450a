// Package rebuild turns a source fragment into a live definition by
// evaluating it with the yaegi Go interpreter.
//
// A script file is loaded once into a Namespace. Every rebuild then forks a
// fresh interpreter from the namespace options and symbol tables and evaluates
// a synthesized file made of the script imports, every other top-level
// declaration of the script, the definition itself and a few generated
// helpers. The interpreter holding the installed definition is never written
// to, so a failed rebuild leaves it intact, and declarations evaluated during
// a rebuild cannot leak into the running program.
//
// # Classes
//
// Interpreted methods are not reachable through reflection, so for a class
// the rebuilder generates one dispatch function per method taking the
// receiver first:
//
//	func Reloadr__Counter__Inc(recv__ *Counter) int { return recv__.Inc() }
//
// The Definition keeps these dispatchers together with the pointer type of
// the struct and its constructor.
//
// # Package state
//
// Package-level variables are evaluated again in every rebuild. A rebuilt
// definition therefore sees its own copy of script globals, initialized the
// way the file initializes them. Host symbols registered with WithSymbols are
// shared.
package rebuild

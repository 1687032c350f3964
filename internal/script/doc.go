// Package script compiles and invokes page programs.
//
// A page program is HCL native syntax after transformation: a set of
// top-level attributes evaluated in dependency order, one of which may be
// "return". Invocation binds "params" to the supplied argument object and
// yields the value of "return" as the page's document value.
package script

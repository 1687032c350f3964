// Package transform rewrites page-program source before compilation.
//
// Passes operate on the hclwrite syntax tree and declare ordering
// constraints with MustRunAfter. The pipeline sorts enabled passes
// topologically and applies them in turn to a single Unit.
package transform

// Package site builds the in-memory model of a source tree.
//
// A BuildContext owns the per-build caches. Scopes (directories) and Pages
// (content files) are constructed top-down by BuildScope and on demand by
// ResolveScope and ResolvePage when a page imports something the builder
// has not reached yet. RenderBody turns a single page into markup; layout
// composition and output live in the render package.
package site

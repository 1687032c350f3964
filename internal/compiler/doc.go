// Package compiler is the content compiler used by the page factory.
//
// Compile turns a markdown body into page-program source: a frontmatter
// binding carrying the table of contents plus a returned raw-markup document.
// Render turns a document value produced by a page program into HTML.
package compiler

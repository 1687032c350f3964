// Package build runs one complete site build: the scope tree, rendering and
// the output manifest, with history, metrics and notifications recorded
// around them.
//
// All execution paths (the build command, watch mode, tests) route through
// BuildService.
package build

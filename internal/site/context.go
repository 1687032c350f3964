package site

import (
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/scopebuild/internal/compiler"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/script"
	"git.home.luguber.info/inful/scopebuild/internal/transform"
)

// DefaultMaxDepth bounds directory nesting below the source root.
const DefaultMaxDepth = 64

// ErrRootLayoutMissing is returned when the source root has no layout file.
var ErrRootLayoutMissing = errors.ConfigError("root scope has no layout").Build()

// BuildContext carries the state of a single build. It must not be reused
// across builds.
type BuildContext struct {
	root        string
	maxDepth    int
	compilerOpt compiler.Options
	loaders     map[string]transform.Loader

	evaluator       script.Evaluator
	frontmatterOnly *transform.Pipeline
	full            *transform.Pipeline

	mu        sync.Mutex
	scopes    map[string]*Scope
	pages     map[string]*Page
	building  map[string]bool
	rendering map[string]bool
}

// Option configures a BuildContext.
type Option func(*BuildContext)

// WithMaxDepth limits directory nesting. Values below one are ignored.
func WithMaxDepth(depth int) Option {
	return func(bc *BuildContext) {
		if depth > 0 {
			bc.maxDepth = depth
		}
	}
}

// WithCompilerOptions sets the markdown compiler options.
func WithCompilerOptions(opts compiler.Options) Option {
	return func(bc *BuildContext) { bc.compilerOpt = opts }
}

// WithDataExtension decodes imports of files ending in ext as YAML data,
// the same way .yaml and .json imports are.
func WithDataExtension(ext string) Option {
	return func(bc *BuildContext) { bc.loaders[strings.ToLower(ext)] = bc.loadData }
}

// NewBuildContext prepares a build rooted at root.
func NewBuildContext(root string, opts ...Option) (*BuildContext, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "resolve source root").
			WithContext("path", root).
			Build()
	}

	bc := &BuildContext{
		root:        filepath.Clean(abs),
		maxDepth:    DefaultMaxDepth,
		compilerOpt: compiler.DefaultOptions(),
		scopes:      make(map[string]*Scope),
		pages:       make(map[string]*Page),
		building:    make(map[string]bool),
		rendering:   make(map[string]bool),
	}
	bc.loaders = bc.defaultLoaders()
	for _, opt := range opts {
		opt(bc)
	}

	bc.evaluator = script.NewEvaluator(script.WithImporter(bc))
	if bc.frontmatterOnly, err = transform.New([]transform.Pass{transform.ExtractFrontmatter{}}); err != nil {
		return nil, err
	}
	if bc.full, err = transform.New(transform.DefaultPasses(), transform.WithLoaders(bc.loaders)); err != nil {
		return nil, err
	}
	return bc, nil
}

// Root returns the absolute source root.
func (bc *BuildContext) Root() string { return bc.root }

// Evaluator returns the page-program evaluator bound to this build.
func (bc *BuildContext) Evaluator() script.Evaluator { return bc.evaluator }

func (bc *BuildContext) cachedScope(path string) (*Scope, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	s, ok := bc.scopes[path]
	return s, ok
}

// storeScope inserts s unless a scope for the same path exists, in which case
// the existing one is returned.
func (bc *BuildContext) storeScope(s *Scope) *Scope {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if existing, ok := bc.scopes[s.Path]; ok {
		return existing
	}
	bc.scopes[s.Path] = s
	return s
}

func (bc *BuildContext) cachedPage(path string) (*Page, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	p, ok := bc.pages[path]
	return p, ok
}

func (bc *BuildContext) storePage(p *Page) *Page {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if existing, ok := bc.pages[p.Path]; ok {
		return existing
	}
	bc.pages[p.Path] = p
	return p
}

// enter marks path as in progress in set. It fails when path is already
// in progress, which means the path depends on itself.
func (bc *BuildContext) enter(set map[string]bool, path, what string) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if set[path] {
		return errors.BuildError(what+" cycle detected").
			Fatal().
			WithContext("path", path).
			Build()
	}
	set[path] = true
	return nil
}

func (bc *BuildContext) leave(set map[string]bool, path string) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	delete(set, path)
}

// Counts reports the number of cached scopes and pages.
func (bc *BuildContext) Counts() (scopes, pages int) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.scopes), len(bc.pages)
}

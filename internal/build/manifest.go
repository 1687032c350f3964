package build

import (
	"context"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/logfields"
	"git.home.luguber.info/inful/scopebuild/internal/manifest"
	"git.home.luguber.info/inful/scopebuild/internal/observability"
	"git.home.luguber.info/inful/scopebuild/internal/render"
	"git.home.luguber.info/inful/scopebuild/internal/site"
)

const manifestName = manifest.FileName

// buildManifest fingerprints every written file from its page frontmatter
// and rendered bytes.
func (s *DefaultBuildService) buildManifest(ctx context.Context, bc *site.BuildContext, result *BuildResult, outputs []render.Output) (*manifest.Manifest, error) {
	m := manifest.New(result.SourcePath, s.version)

	rev, err := manifest.SourceRevision(result.SourcePath)
	if err != nil {
		observability.WarnContext(ctx, "Failed to read source revision", logfields.Error(err))
	}
	m.SourceRevision = rev

	for _, o := range outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := filepath.Join(result.OutputPath, filepath.FromSlash(o.Path))
		body, err := os.ReadFile(target)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read rendered output").
				WithContext("path", target).
				Build()
		}

		var fields map[string]any
		if page, err := bc.ResolvePage(ctx, o.Source); err == nil {
			fields = page.Frontmatter
		}
		fp, err := manifest.Fingerprint(fields, body)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryBuild, "fingerprint output").
				WithContext("path", o.Path).
				Build()
		}

		source := o.Source
		if rel, err := filepath.Rel(bc.Root(), o.Source); err == nil {
			source = filepath.ToSlash(rel)
		}
		m.Add(manifest.Entry{
			Path:        o.Path,
			Source:      source,
			Type:        string(o.Type),
			Bytes:       o.Bytes,
			Fingerprint: fp,
		})
	}

	m.Seal()
	return m, nil
}

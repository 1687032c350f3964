package manifest

import (
	stderrors "errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
)

// SourceRevision returns the HEAD commit of the repository containing dir.
// It returns an empty string when dir is not inside a repository or the
// repository has no commits yet.
func SourceRevision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", errors.GitError("open source repository").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}

	ref, err := repo.Head()
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.GitError("resolve HEAD").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return ref.Hash().String(), nil
}

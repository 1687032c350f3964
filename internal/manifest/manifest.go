// Package manifest records what a build wrote and fingerprints it.
package manifest

import (
	"encoding/json"
	"os"
	"slices"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/frontmatter"
)

// FileName is the manifest written at the root of the output directory.
const FileName = "manifest.json"

// Entry is one output file.
type Entry struct {
	Path        string `json:"path"`
	Source      string `json:"source"`
	Type        string `json:"type"`
	Bytes       int    `json:"bytes"`
	Fingerprint string `json:"fingerprint"`
}

// Manifest is a record of a build's outputs. It holds nothing specific to a
// single run, so unchanged sources produce a byte-identical manifest. Build
// IDs and times live in the build history.
type Manifest struct {
	Version        string  `json:"version"`
	Source         string  `json:"source"`
	SourceRevision string  `json:"source_revision,omitempty"`
	Fingerprint    string  `json:"fingerprint"`
	Files          []Entry `json:"files"`
}

// New returns an empty manifest.
func New(source, version string) *Manifest {
	return &Manifest{
		Version: version,
		Source:  source,
		Files:   []Entry{},
	}
}

// Fingerprint computes the content fingerprint of a rendered file from the
// page frontmatter and the rendered bytes.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	fieldsForHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField {
			continue
		}
		fieldsForHash[k] = v
	}

	frontmatterForHash := ""
	if len(fieldsForHash) > 0 {
		serialized, err := frontmatter.SerializeYAML(fieldsForHash, frontmatter.Style{Newline: "\n"})
		if err != nil {
			return "", err
		}
		frontmatterForHash = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(frontmatterForHash, string(body)), nil
}

// Add records an output file.
func (m *Manifest) Add(e Entry) {
	m.Files = append(m.Files, e)
}

// Seal sorts the entries and computes the aggregate fingerprint. It covers
// paths and file fingerprints only, so identical builds produce identical
// fingerprints.
func (m *Manifest) Seal() string {
	slices.SortFunc(m.Files, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })

	var sb strings.Builder
	for _, f := range m.Files {
		sb.WriteString(f.Path)
		sb.WriteByte(' ')
		sb.WriteString(f.Fingerprint)
		sb.WriteByte('\n')
	}
	m.Fingerprint = mdfp.CalculateFingerprintFromParts("", sb.String())
	return m.Fingerprint
}

// ToJSON serializes the manifest to JSON.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "marshal manifest").Build()
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "unmarshal manifest").Build()
	}
	return &m, nil
}

// Write stores the manifest at path.
func (m *Manifest) Write(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write manifest").
			WithContext("path", path).
			Build()
	}
	return nil
}

// Read loads a manifest from path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read manifest").
			WithContext("path", path).
			Build()
	}
	return FromJSON(data)
}

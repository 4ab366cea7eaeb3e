package intent

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Artifact errors. Startup load failures are fatal to the serving process;
// the same failures during reload leave the installed bundle untouched.
var (
	// ErrArtifactMissing means no bundle exists at the expected location.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrArtifactCorrupt means a bundle is present but structurally invalid,
	// e.g. the stored vectorizer and classifier disagree on dimensionality.
	ErrArtifactCorrupt = errors.New("artifact corrupt")
)

// Bundle is the matched, versioned triple used together for one serving
// generation. Immutable after construction: a reload builds an entirely new
// Bundle and installs it atomically, so readers holding an old reference
// finish against consistent state.
type Bundle struct {
	Vectorizer *Vectorizer
	Classifier *LinearClassifier
	Catalog    *Catalog
	Version    int64
	LoadedAt   time.Time
}

// Artifacts is the unversioned output of one training run, as read from a
// Source. The Registry validates and version-tags it at install time.
type Artifacts struct {
	Vectorizer *Vectorizer
	Classifier *LinearClassifier
	Catalog    *Catalog
}

// Validate cross-checks the matched pair: the stored vectorizer and
// classifier must agree on feature-space dimensionality and the classifier
// must have a non-empty label space.
func (a *Artifacts) Validate() error {
	switch {
	case a.Vectorizer == nil || a.Classifier == nil || a.Catalog == nil:
		return fmt.Errorf("%w: incomplete artifact set", ErrArtifactCorrupt)
	case len(a.Classifier.Classes) == 0:
		return fmt.Errorf("%w: classifier has no classes", ErrArtifactCorrupt)
	case len(a.Classifier.Weights) != len(a.Classifier.Classes),
		len(a.Classifier.Intercepts) != len(a.Classifier.Classes):
		return fmt.Errorf("%w: classifier weight shape mismatch", ErrArtifactCorrupt)
	case a.Vectorizer.NumFeatures() != a.Classifier.NumFeatures():
		return fmt.Errorf("%w: vectorizer has %d features, classifier expects %d",
			ErrArtifactCorrupt, a.Vectorizer.NumFeatures(), a.Classifier.NumFeatures())
	}
	return nil
}

// Model is the serialized vectorizer+classifier pair written by the trainer
// and read back at serve time. The catalog travels separately as the
// human-editable intents document.
type Model struct {
	Vectorizer *Vectorizer
	Classifier *LinearClassifier
	TrainedAt  time.Time
}

// EncodeModel writes the gob-encoded model.
func EncodeModel(w io.Writer, m *Model) error {
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// DecodeModel reads a gob-encoded model.
func DecodeModel(r io.Reader) (*Model, error) {
	var m Model
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}
	return &m, nil
}

// SaveModel writes the model atomically: encode to a temp file in the target
// directory, then rename over the destination so a concurrent reload never
// observes a torn artifact.
func SaveModel(path string, m *Model) error {
	var buf bytes.Buffer
	if err := EncodeModel(&buf, m); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dirOf(path), ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close model file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to install model file: %w", err)
	}
	return nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == os.PathSeparator {
			return path[:i]
		}
	}
	return "."
}

// Source produces one complete artifact set. Load must build everything in
// isolation so a failure has no effect on serving state.
type Source interface {
	Load() (*Artifacts, error)
}

// FileSource reads the trained model (gob) and the intents catalog
// (json/yaml) from durable storage.
type FileSource struct {
	ModelPath   string
	CatalogPath string
}

// Load implements Source. A missing file maps to ErrArtifactMissing, an
// undecodable or mismatched pair to ErrArtifactCorrupt.
func (s FileSource) Load() (*Artifacts, error) {
	f, err := os.Open(s.ModelPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: model at %s", ErrArtifactMissing, s.ModelPath)
		}
		return nil, fmt.Errorf("failed to open model: %w", err)
	}
	defer func() { _ = f.Close() }()

	model, err := DecodeModel(f)
	if err != nil {
		return nil, err
	}

	catalog, err := LoadCatalog(s.CatalogPath)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) {
			return nil, fmt.Errorf("%w: intents at %s", ErrArtifactMissing, s.CatalogPath)
		}
		return nil, fmt.Errorf("%w: %v", ErrArtifactCorrupt, err)
	}

	return &Artifacts{
		Vectorizer: model.Vectorizer,
		Classifier: model.Classifier,
		Catalog:    catalog,
	}, nil
}

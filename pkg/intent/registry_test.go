package intent

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// stubSource returns fresh artifacts per Load, with a switchable failure.
type stubSource struct {
	mu       sync.Mutex
	fail     error
	features int
}

func (s *stubSource) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *stubSource) Load() (*Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}

	n := s.features
	if n == 0 {
		n = 2
	}
	catalog, err := NewCatalog([]Intent{
		{Tag: "greeting", Patterns: []string{"hi"}, Responses: []string{"Hello!"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Goodbye!"}},
	})
	if err != nil {
		return nil, err
	}

	vocab := make(map[string]int, n)
	idf := make([]float64, n)
	for i := 0; i < n; i++ {
		vocab[fmt.Sprintf("term%d", i)] = i
		idf[i] = 1
	}
	weights := make([][]float64, 2)
	for i := range weights {
		weights[i] = make([]float64, n)
	}
	return &Artifacts{
		Vectorizer: &Vectorizer{Vocabulary: vocab, IDF: idf},
		Classifier: &LinearClassifier{
			Kind:       KindLogReg,
			Classes:    []string{"goodbye", "greeting"},
			Weights:    weights,
			Intercepts: []float64{0, 0},
		},
		Catalog: catalog,
	}, nil
}

func TestRegistryEmptyUntilLoad(t *testing.T) {
	r := NewRegistry()

	if r.Loaded() {
		t.Error("fresh registry should not report loaded")
	}
	if _, err := r.Current(); !errors.Is(err, ErrNoBundle) {
		t.Errorf("Current on empty registry = %v, want ErrNoBundle", err)
	}
}

func TestRegistryLoadAndReloadVersions(t *testing.T) {
	r := NewRegistry()
	src := &stubSource{}

	b1, err := r.Load(src)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b1.Version != 1 {
		t.Errorf("first version = %d, want 1", b1.Version)
	}
	if b1.LoadedAt.IsZero() {
		t.Error("LoadedAt should be set")
	}

	b2, err := r.Reload(src)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if b2.Version != 2 {
		t.Errorf("second version = %d, want 2", b2.Version)
	}

	cur, err := r.Current()
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if cur != b2 {
		t.Error("Current should return the newest bundle")
	}
}

func TestRegistryFailedReloadKeepsOldBundle(t *testing.T) {
	r := NewRegistry()
	src := &stubSource{}

	b1, err := r.Load(src)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	src.setFail(errors.New("disk on fire"))
	if _, err := r.Reload(src); err == nil {
		t.Fatal("Reload should fail when the source fails")
	}

	cur, err := r.Current()
	if err != nil {
		t.Fatalf("Current failed after failed reload: %v", err)
	}
	if cur != b1 || cur.Version != 1 {
		t.Error("failed reload must leave the previous bundle installed")
	}
}

func TestRegistryRejectsCorruptArtifacts(t *testing.T) {
	r := NewRegistry()

	// Vectorizer says 3 features, classifier expects 2.
	src := &mismatchedSource{}
	if _, err := r.Load(src); !errors.Is(err, ErrArtifactCorrupt) {
		t.Errorf("Load with mismatched dimensions = %v, want ErrArtifactCorrupt", err)
	}
	if r.Loaded() {
		t.Error("corrupt artifacts must not be installed")
	}
}

type mismatchedSource struct{}

func (mismatchedSource) Load() (*Artifacts, error) {
	catalog, _ := NewCatalog([]Intent{
		{Tag: "greeting", Responses: []string{"Hello!"}},
	})
	return &Artifacts{
		Vectorizer: &Vectorizer{
			Vocabulary: map[string]int{"a": 0, "b": 1, "c": 2},
			IDF:        []float64{1, 1, 1},
		},
		Classifier: &LinearClassifier{
			Kind:       KindLogReg,
			Classes:    []string{"x", "y"},
			Weights:    [][]float64{{0, 0}, {0, 0}},
			Intercepts: []float64{0, 0},
		},
		Catalog: catalog,
	}, nil
}

func TestRegistryConcurrentReadersDuringReload(t *testing.T) {
	r := NewRegistry()
	src := &stubSource{}
	if _, err := r.Load(src); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastVersion int64
			for {
				select {
				case <-stop:
					return
				default:
				}
				b, err := r.Current()
				if err != nil {
					t.Errorf("Current failed mid-reload: %v", err)
					return
				}
				// Versions only move forward and a bundle is never torn.
				if b.Version < lastVersion {
					t.Errorf("version went backwards: %d after %d", b.Version, lastVersion)
					return
				}
				lastVersion = b.Version
				if b.Vectorizer.NumFeatures() != b.Classifier.NumFeatures() {
					t.Error("observed a mixed bundle")
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if _, err := r.Reload(src); err != nil {
			t.Errorf("Reload failed: %v", err)
			break
		}
	}
	close(stop)
	wg.Wait()

	cur, _ := r.Current()
	if cur.Version != 51 {
		t.Errorf("final version = %d, want 51", cur.Version)
	}
}

package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

type artifactHeader struct {
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
}

// LoadModel reads a model artifact. A missing file fails with
// ErrModelNotFound; anything that cannot be decoded into a usable model
// fails with ErrModelCorrupt. No partial model is ever returned.
func LoadModel(path string) (Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(path, err)
		}
		return nil, corrupt(path, err)
	}

	var header artifactHeader
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, corrupt(path, err)
	}
	if header.Features != nil {
		if err := checkFeatureNames(header.Features); err != nil {
			return nil, corrupt(path, err)
		}
	}

	var model Artifact
	switch header.Kind {
	case KindLinearRegression:
		model, err = decodeLinearRegression(payload)
	case KindRegressionTree:
		model, err = decodeRegressionTree(payload)
	default:
		err = fmt.Errorf("unsupported model kind %q", header.Kind)
	}
	if err != nil {
		return nil, corrupt(path, err)
	}
	return model, nil
}

func checkFeatureNames(names []string) error {
	want := FeatureNames()
	if len(names) != len(want) {
		return fmt.Errorf("artifact has %d features, encoder produces %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			return fmt.Errorf("feature %d is %q, encoder produces %q", i, names[i], want[i])
		}
	}
	return nil
}

// ErrRegistryFull is returned when a new artifact path is loaded into a
// registry that already holds its maximum number of models.
var ErrRegistryFull = errors.New("model registry full")

// Registry hands out one model instance per artifact path for the life of
// the process. It holds at most size models and never evicts, so an artifact
// is read from disk once; loading a new path into a full registry fails with
// ErrRegistryFull.
type Registry struct {
	mu     sync.Mutex
	size   int
	cache  *lru.Cache[string, Artifact]
	logger *zap.Logger
}

func NewRegistry(size int, logger *zap.Logger) (*Registry, error) {
	if size <= 0 {
		size = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, Artifact](size)
	if err != nil {
		return nil, err
	}
	return &Registry{size: size, cache: cache, logger: logger}, nil
}

func (r *Registry) Load(path string) (Artifact, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = filepath.Clean(path)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if model, ok := r.cache.Get(key); ok {
		return model, nil
	}
	if r.cache.Len() >= r.size {
		return nil, fmt.Errorf("%w: cannot load %s, %d models already held", ErrRegistryFull, key, r.size)
	}
	model, err := LoadModel(path)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, model)
	r.logger.Info("model loaded", zap.String("path", key), zap.String("kind", model.Kind()))
	return model, nil
}

// Paths returns the artifact paths currently held, oldest first.
func (r *Registry) Paths() []string {
	return r.cache.Keys()
}

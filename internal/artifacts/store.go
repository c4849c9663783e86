package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "tabprep/internal/errors"
	"tabprep/pkg/contracts/domain"
)

const artifactExtension = ".json"

// Store persists pipeline artifacts as JSON files in a single directory.
// Every artifact carries a checksum over its tables so a transform run can
// detect files that were edited or truncated after the fit run wrote them.
type Store struct {
	dir    string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, apperrors.NewAppValidationError("artifact directory must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create artifact directory", err)
	}

	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store writes into.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the artifact to disk. A missing ID is assigned and the
// checksum is always recomputed before writing.
func (s *Store) Save(ctx context.Context, artifact *domain.PipelineArtifact) error {
	if artifact == nil {
		return apperrors.NewAppValidationError("artifact must not be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if artifact.ID == "" {
		artifact.ID = uuid.New().String()
	}
	if err := validateID(artifact.ID); err != nil {
		return err
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}

	sum, err := Checksum(artifact)
	if err != nil {
		return apperrors.NewStorageError("failed to compute artifact checksum", err)
	}
	artifact.Checksum = sum

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal artifact", err)
	}

	path := s.path(artifact.ID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("failed to write artifact file", err)
	}

	s.logger.InfoContext(ctx, "artifact saved",
		slog.String("artifact_id", artifact.ID),
		slog.String("path", path),
		slog.Int("size_bytes", len(data)),
		slog.Int("mapped_columns", len(artifact.Mappings)),
		slog.Int("imputed_columns", len(artifact.Imputations)))

	return nil
}

// Load reads an artifact by ID and verifies its checksum.
func (s *Store) Load(ctx context.Context, id string) (*domain.PipelineArtifact, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.path(id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError("artifact " + id)
		}
		return nil, apperrors.NewStorageError("failed to read artifact file", err)
	}

	var artifact domain.PipelineArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, apperrors.NewArtifactCorruptedError(id, err)
	}

	expected, err := Checksum(&artifact)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to compute artifact checksum", err)
	}
	if artifact.Checksum != expected {
		s.logger.ErrorContext(ctx, "artifact checksum mismatch",
			slog.String("artifact_id", id),
			slog.String("stored", artifact.Checksum),
			slog.String("computed", expected))
		return nil, apperrors.NewArtifactCorruptedError(id, fmt.Errorf("checksum mismatch: stored %s, computed %s", artifact.Checksum, expected))
	}

	// A skip_impute fit stores a null imputation table. Replays must still
	// run in transform mode, so normalize to an empty table; fresh missing
	// values then surface as fallbacks instead of a silent re-fit.
	if artifact.Mappings == nil {
		artifact.Mappings = domain.MappingTable{}
	}
	if artifact.Imputations == nil {
		artifact.Imputations = domain.ImputationTable{}
	}

	s.logger.DebugContext(ctx, "artifact loaded",
		slog.String("artifact_id", id),
		slog.String("target", artifact.Target))

	return &artifact, nil
}

// List returns summaries of all artifacts in the store, newest first.
// Files that cannot be parsed are skipped with a warning so one corrupt
// artifact does not hide the rest.
func (s *Store) List(ctx context.Context) ([]domain.ArtifactSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read artifact directory", err)
	}

	summaries := make([]domain.ArtifactSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExtension) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable artifact file",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}

		var artifact domain.PipelineArtifact
		if err := json.Unmarshal(data, &artifact); err != nil {
			s.logger.WarnContext(ctx, "skipping unparseable artifact file",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()))
			continue
		}

		summaries = append(summaries, artifact.Summary())
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})

	return summaries, nil
}

// Delete removes an artifact by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewNotFoundError("artifact " + id)
		}
		return apperrors.NewStorageError("failed to delete artifact file", err)
	}

	s.logger.InfoContext(ctx, "artifact deleted",
		slog.String("artifact_id", id),
		slog.String("path", path))

	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+artifactExtension)
}

// validateID rejects IDs that could escape the store directory.
func validateID(id string) error {
	if id == "" {
		return apperrors.NewAppValidationError("artifact id must not be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return apperrors.NewAppValidationError("artifact id contains invalid characters")
	}
	return nil
}

// checksumPayload is the canonical subset of an artifact covered by the
// checksum. Map keys are sorted by encoding/json, so equal tables always
// produce equal bytes.
type checksumPayload struct {
	Target          string                 `json:"target"`
	Sentinel        string                 `json:"sentinel"`
	IndicatorSuffix string                 `json:"indicator_suffix"`
	Mappings        domain.MappingTable    `json:"mappings"`
	Imputations     domain.ImputationTable `json:"imputations"`
}

// Checksum computes the hex SHA-256 of the artifact's target, fit-time
// settings and tables.
func Checksum(artifact *domain.PipelineArtifact) (string, error) {
	payload := checksumPayload{
		Target:          artifact.Target,
		Sentinel:        artifact.Sentinel,
		IndicatorSuffix: artifact.IndicatorSuffix,
		Mappings:        artifact.Mappings,
		Imputations:     artifact.Imputations,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

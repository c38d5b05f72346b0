package completionstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Amund211/advancements/internal/domain"
	"github.com/Amund211/advancements/internal/reporting"
	"github.com/Amund211/advancements/internal/strutils"
)

const DATA_FILE_NAME = "data.json"

// FileStore keeps the counts as a pretty-printed JSON object keyed by player UUID
type FileStore struct {
	path string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{
		path: filepath.Join(dataDir, DATA_FILE_NAME),
	}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (map[string]int, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", domain.ErrStoreUnavailable, f.path, err)
	}

	return decodeCounts(data)
}

func decodeCounts(data []byte) (map[string]int, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]int{}, nil
	}

	var raw map[string]json.Number
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode counts: %w", domain.ErrCorruptState, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: counts must be a JSON object", domain.ErrCorruptState)
	}

	counts := make(map[string]int, len(raw))
	for key, value := range raw {
		playerID, err := strutils.NormalizeUUID(key)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid player uuid: %w", domain.ErrCorruptState, err)
		}

		count, err := value.Int64()
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: invalid count %q for %s", domain.ErrCorruptState, value.String(), playerID)
		}

		counts[playerID] = max(counts[playerID], int(count))
	}

	return counts, nil
}

// Save rejects the whole snapshot if any key is not a normalized UUID, since
// Load would refuse to read it back.
func (f *FileStore) Save(ctx context.Context, counts map[string]int) error {
	for playerID := range counts {
		if !strutils.UUIDIsNormalized(playerID) {
			err := fmt.Errorf("uuid is not normalized")
			reporting.Report(ctx, err, map[string]string{
				"uuid": playerID,
			})
			return err
		}
	}

	// encoding/json writes map keys in sorted order
	data, err := json.MarshalIndent(counts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(f.path), 0o755)
	if err != nil {
		return fmt.Errorf("%w: failed to create data directory: %w", domain.ErrStoreUnavailable, err)
	}

	err = os.WriteFile(f.path, data, 0o644)
	if err != nil {
		return fmt.Errorf("%w: failed to write %s: %w", domain.ErrStoreUnavailable, f.path, err)
	}

	return nil
}

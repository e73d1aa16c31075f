package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Repository implements simpleasset.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]*simpleasset.AssetRecord
	bySHA256 map[string][]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:   make(map[uuid.UUID]*simpleasset.AssetRecord),
		bySHA256: make(map[string][]uuid.UUID),
	}
}

func (r *Repository) CreateAsset(ctx context.Context, record *simpleasset.AssetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[record.ID]; exists {
		return simpleasset.ErrAssetAlreadyExists
	}

	recordCopy := *record
	r.assets[record.ID] = &recordCopy
	r.bySHA256[record.SHA256] = append(r.bySHA256[record.SHA256], record.ID)
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*simpleasset.AssetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.assets[id]
	if !exists || record.DeletedAt != nil {
		return nil, simpleasset.ErrAssetNotFound
	}

	recordCopy := *record
	return &recordCopy, nil
}

// FindBySHA256 returns the oldest live, intact record with the given digest.
func (r *Repository) FindBySHA256(ctx context.Context, sha256 string) (*simpleasset.AssetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *simpleasset.AssetRecord
	for _, id := range r.bySHA256[sha256] {
		record := r.assets[id]
		if record == nil || record.DeletedAt != nil || record.Status != string(simpleasset.AssetStatusStored) {
			continue
		}
		if found == nil || record.CreatedAt.Before(found.CreatedAt) {
			found = record
		}
	}
	if found == nil {
		return nil, simpleasset.ErrAssetNotFound
	}

	recordCopy := *found
	return &recordCopy, nil
}

func (r *Repository) ListAssets(ctx context.Context, filters simpleasset.AssetFilters) ([]*simpleasset.AssetRecord, error) {
	r.mu.RLock()
	matched := r.match(filters)
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			return []*simpleasset.AssetRecord{}, nil
		}
		matched = matched[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}
	return matched, nil
}

func (r *Repository) CountAssets(ctx context.Context, filters simpleasset.AssetFilters) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return int64(len(r.match(filters))), nil
}

func (r *Repository) UpdateAsset(ctx context.Context, record *simpleasset.AssetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.assets[record.ID]
	if !exists {
		return simpleasset.ErrAssetNotFound
	}
	if existing.SHA256 != record.SHA256 {
		r.unindex(existing)
		r.bySHA256[record.SHA256] = append(r.bySHA256[record.SHA256], record.ID)
	}

	recordCopy := *record
	r.assets[record.ID] = &recordCopy
	return nil
}

// DeleteAsset soft deletes the record.
func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.assets[id]
	if !exists || record.DeletedAt != nil {
		return simpleasset.ErrAssetNotFound
	}

	now := time.Now().UTC()
	record.DeletedAt = &now
	record.Status = string(simpleasset.AssetStatusDeleted)
	record.UpdatedAt = now
	return nil
}

// match returns copies of the records passing the filters. Callers hold the lock.
func (r *Repository) match(filters simpleasset.AssetFilters) []*simpleasset.AssetRecord {
	prefix := strings.ToLower(filters.MediaTypePrefix)
	matched := make([]*simpleasset.AssetRecord, 0, len(r.assets))
	for _, record := range r.assets {
		if record.DeletedAt != nil && !filters.IncludeDeleted {
			continue
		}
		if prefix != "" && !strings.HasPrefix(record.MediaType, prefix) {
			continue
		}
		if filters.Signature != "" && !strings.EqualFold(record.Signature, filters.Signature) {
			continue
		}
		if filters.Category != "" && record.Category != filters.Category {
			continue
		}
		if filters.Status != "" && record.Status != filters.Status {
			continue
		}
		recordCopy := *record
		matched = append(matched, &recordCopy)
	}
	return matched
}

func (r *Repository) unindex(record *simpleasset.AssetRecord) {
	ids := r.bySHA256[record.SHA256]
	for i, id := range ids {
		if id == record.ID {
			r.bySHA256[record.SHA256] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(r.bySHA256[record.SHA256]) == 0 {
		delete(r.bySHA256, record.SHA256)
	}
}

package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for generating object keys
type Generator interface {
	GenerateKey(assetID uuid.UUID, metadata *KeyMetadata) string
}

// KeyMetadata provides context for key generation
type KeyMetadata struct {
	FileName  string
	Extension string // with leading dot, e.g. ".png"
	CreatedAt time.Time
}

// LegacyGenerator produces "A/{assetID}/{fileName}".
type LegacyGenerator struct{}

func NewLegacyGenerator() *LegacyGenerator {
	return &LegacyGenerator{}
}

func (g *LegacyGenerator) GenerateKey(assetID uuid.UUID, metadata *KeyMetadata) string {
	base := fmt.Sprintf("A/%s", assetID)
	if metadata != nil && metadata.FileName != "" {
		return fmt.Sprintf("%s/%s", base, sanitizeFilename(metadata.FileName))
	}
	return base
}

// GitLikeGenerator shards by the leading characters of the asset id so no
// directory grows unbounded: "assets/{shard}/{rest}{ext}".
type GitLikeGenerator struct {
	ShardLength int
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{ShardLength: 2}
}

func (g *GitLikeGenerator) GenerateKey(assetID uuid.UUID, metadata *KeyMetadata) string {
	id := strings.ReplaceAll(assetID.String(), "-", "")
	shard := g.ShardLength
	if shard <= 0 || shard >= len(id) {
		shard = 2
	}
	return fmt.Sprintf("assets/%s/%s%s", id[:shard], id[shard:], extension(metadata))
}

// DatedGenerator groups keys by the asset's creation month:
// "assets/{yyyy}/{mm}/{assetID}{ext}".
type DatedGenerator struct{}

func NewDatedGenerator() *DatedGenerator {
	return &DatedGenerator{}
}

func (g *DatedGenerator) GenerateKey(assetID uuid.UUID, metadata *KeyMetadata) string {
	created := time.Now().UTC()
	if metadata != nil && !metadata.CreatedAt.IsZero() {
		created = metadata.CreatedAt.UTC()
	}
	return fmt.Sprintf("assets/%04d/%02d/%s%s", created.Year(), int(created.Month()), assetID, extension(metadata))
}

// CustomFuncGenerator allows users to provide their own key generation function
type CustomFuncGenerator struct {
	GenerateFunc func(assetID uuid.UUID, metadata *KeyMetadata) string
}

func NewCustomFuncGenerator(fn func(assetID uuid.UUID, metadata *KeyMetadata) string) *CustomFuncGenerator {
	return &CustomFuncGenerator{GenerateFunc: fn}
}

func (g *CustomFuncGenerator) GenerateKey(assetID uuid.UUID, metadata *KeyMetadata) string {
	return g.GenerateFunc(assetID, metadata)
}

// NewGenerator resolves a strategy name from configuration.
func NewGenerator(strategy string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", "git-like", "gitlike":
		return NewGitLikeGenerator(), nil
	case "legacy":
		return NewLegacyGenerator(), nil
	case "dated":
		return NewDatedGenerator(), nil
	}
	return nil, fmt.Errorf("unknown object key strategy %q", strategy)
}

// NewRecommendedGenerator returns the recommended generator for new installations
func NewRecommendedGenerator() Generator {
	return NewGitLikeGenerator()
}

func extension(metadata *KeyMetadata) string {
	if metadata == nil || metadata.Extension == "" {
		return ""
	}
	ext := strings.ToLower(metadata.Extension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return sanitizeFilename(ext)
}

func sanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	return replacer.Replace(filename)
}

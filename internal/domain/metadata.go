package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs-ent/starglow-sub013/internal/entity"
	"github.com/rs-ent/starglow-sub013/internal/repository"
	"github.com/rs-ent/starglow-sub013/pkg/storage"
	"github.com/rs-ent/starglow-sub013/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

const defaultMetadataBatchSize = 20

// MetadataGenerator produces the per-token metadata blobs after a mint. It
// is the repairable phase: the mint has already been persisted when it runs,
// and every failure is recorded per token for later regeneration instead of
// rolling anything back.
type MetadataGenerator struct {
	storage     storage.Storage
	tokenRepo   repository.TokenRepository
	failureRepo repository.TokenMetadataFailureRepository
}

func NewMetadataGenerator(
	storage storage.Storage,
	tokenRepo repository.TokenRepository,
	failureRepo repository.TokenMetadataFailureRepository,
) *MetadataGenerator {
	return &MetadataGenerator{
		storage:     storage,
		tokenRepo:   tokenRepo,
		failureRepo: failureRepo,
	}
}

type tokenMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ExternalURL string `json:"external_url,omitempty"`
}

func (g *MetadataGenerator) metadataObject(
	ctx context.Context, collection *entity.Collection, tokenID int64,
) (*storage.UploadObject, error) {
	blob, err := json.Marshal(tokenMetadata{
		Name:        fmt.Sprintf("%s #%d", collection.Name, tokenID),
		Description: collection.Name,
		Image:       fmt.Sprintf("%s%d.png", collection.BaseURI, tokenID),
		ExternalURL: collection.ContractURI,
	})
	if err != nil {
		return nil, err
	}

	return &storage.UploadObject{
		Bucket:   xcontext.Configs(ctx).Storage.Bucket,
		Prefix:   collection.Address,
		FileName: fmt.Sprintf("%d.json", tokenID),
		Mime:     "application/json",
		Data:     blob,
	}, nil
}

// Generate uploads metadata for the given tokens in rate-limited batches.
// It never returns an error; failures are recorded per token.
func (g *MetadataGenerator) Generate(ctx context.Context, collection *entity.Collection, tokenIDs []int64) {
	cfg := xcontext.Configs(ctx).Blockchain
	batchSize := cfg.MetadataBatchSize
	if batchSize <= 0 {
		batchSize = defaultMetadataBatchSize
	}

	for start := 0; start < len(tokenIDs); start += batchSize {
		end := start + batchSize
		if end > len(tokenIDs) {
			end = len(tokenIDs)
		}

		g.generateBatch(ctx, collection, tokenIDs[start:end])

		// Cooldown between batches to respect the upstream rate limit.
		if end < len(tokenIDs) && cfg.MetadataBatchCooldown > 0 {
			time.Sleep(cfg.MetadataBatchCooldown)
		}
	}
}

func (g *MetadataGenerator) generateBatch(ctx context.Context, collection *entity.Collection, tokenIDs []int64) {
	objects := make([]*storage.UploadObject, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		object, err := g.metadataObject(ctx, collection, tokenID)
		if err != nil {
			g.recordFailure(ctx, collection.ID, tokenID, err)
			continue
		}

		objects = append(objects, object)
	}

	responses, err := g.storage.BulkUpload(ctx, objects)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot upload metadata batch of %s: %v", collection.Address, err)
		for _, tokenID := range tokenIDs {
			g.recordFailure(ctx, collection.ID, tokenID, err)
		}

		return
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, tokenID := range tokenIDs {
		i, tokenID := i, tokenID
		eg.Go(func() error {
			err := g.tokenRepo.UpdateMetadataURI(egCtx, collection.ID, tokenID, responses[i].Url)
			if err != nil {
				g.recordFailure(egCtx, collection.ID, tokenID, err)
			}

			return nil
		})
	}

	// Goroutines report through the failure table, never through eg.
	_ = eg.Wait()
}

// Regenerate rebuilds metadata for a single token, keyed by collection
// address and token id. Used to replay recorded failures.
func (g *MetadataGenerator) Regenerate(ctx context.Context, collection *entity.Collection, tokenID int64) (string, error) {
	object, err := g.metadataObject(ctx, collection, tokenID)
	if err != nil {
		return "", err
	}

	resp, err := g.storage.Upload(ctx, object)
	if err != nil {
		return "", err
	}

	if err := g.tokenRepo.UpdateMetadataURI(ctx, collection.ID, tokenID, resp.Url); err != nil {
		return "", err
	}

	if err := g.failureRepo.Delete(ctx, collection.ID, tokenID); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot clear metadata failure of token %d: %v", tokenID, err)
	}

	return resp.Url, nil
}

func (g *MetadataGenerator) recordFailure(ctx context.Context, collectionID string, tokenID int64, cause error) {
	xcontext.Logger(ctx).Warnf("Metadata generation failed for token %d of %s: %v",
		tokenID, collectionID, cause)

	err := g.failureRepo.Upsert(ctx, &entity.TokenMetadataFailure{
		CollectionID: collectionID,
		TokenID:      tokenID,
		Reason:       cause.Error(),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot record metadata failure of token %d: %v", tokenID, err)
	}
}

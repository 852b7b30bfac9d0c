package sync

import (
	"context"

	"github.com/alfredjeanlab/givecal/internal/config"
)

// Destinations builds the sync targets enabled in cfg. It returns an empty
// slice when neither S3 nor git is configured.
func Destinations(ctx context.Context, cfg *config.Config) ([]Destination, error) {
	var dests []Destination
	if cfg.SyncS3Bucket != "" {
		s3dest, err := NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
		if err != nil {
			return nil, err
		}
		dests = append(dests, s3dest)
	}
	if cfg.SyncGitRepo != "" {
		dests = append(dests, NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
	}
	return dests, nil
}

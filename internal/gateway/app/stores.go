package app

import (
	"log"
	"os"
	"strings"

	"appforge/internal/gateway/config"
	"appforge/internal/gateway/repository/appstore"
	artifactrepo "appforge/internal/gateway/repository/artifact"
)

type gatewayStores struct {
	apps     appstore.Store
	artifact artifactrepo.Store
}

func initStores(cfg *config.Config, logger *log.Logger) *gatewayStores {
	return &gatewayStores{
		apps:     appstore.NewFromEnv(logger),
		artifact: chooseArtifactStore(cfg, logger),
	}
}

// chooseArtifactStore honors an explicit ARTIFACT_STORE selection first,
// then the S3 settings, then falls back to memory.
func chooseArtifactStore(cfg *config.Config, logger *log.Logger) artifactrepo.Store {
	s3cfg := artifactrepo.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	}

	if explicit := strings.TrimSpace(os.Getenv("ARTIFACT_STORE")); explicit != "" {
		return artifactrepo.NewFromEnv(s3cfg, logger)
	}

	if cfg.Artifact.CanUseS3() {
		s3Store, err := artifactrepo.NewS3Store(s3cfg)
		if err == nil {
			logger.Printf("artifact store: s3 bucket=%s endpoint=%s", s3cfg.Bucket, s3cfg.Endpoint)
			return s3Store
		}
		logger.Printf("artifact store: s3 init failed, using in-memory fallback: %v", err)
	} else if cfg.Artifact.Enabled {
		logger.Printf("artifact store: using in-memory fallback (s3 config incomplete)")
	}
	return artifactrepo.NewMemoryStore()
}

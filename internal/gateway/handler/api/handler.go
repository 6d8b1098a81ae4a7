// Package api serves the builder-facing JSON surface: definition CRUD,
// compilation, bundle generation, and event execution.
package api

import (
	"log"

	"appforge/internal/cache/compiled"
	"appforge/internal/gateway/repository/appstore"
	"appforge/internal/gateway/repository/artifact"
	"appforge/internal/gateway/run"
	"appforge/internal/llm"
)

type Handler struct {
	apps      appstore.Store
	artifacts artifact.Store
	cache     *compiled.Cache
	runs      *run.Service
	providers *llm.Registry
	logger    *log.Logger
}

func New(apps appstore.Store, artifacts artifact.Store, cache *compiled.Cache, runs *run.Service, providers *llm.Registry, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		apps:      apps,
		artifacts: artifacts,
		cache:     cache,
		runs:      runs,
		providers: providers,
		logger:    logger,
	}
}

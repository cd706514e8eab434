// Package services holds the application logic behind the HTTP handlers:
// catalog and record operations, report building and export, identity
// tokens, form state, and the dashboard hub.
package services

import (
	"github.com/jenkinph/procedure-passport/config"
	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/store"
)

// Services bundles what the handlers depend on.
type Services struct {
	Config  config.Config
	Catalog *CatalogService
	Records *RecordService
	Reports *ReportService
	Tokens  *TokenService
	Hub     *Hub
}

// New wires the services over st, which is normally a cache.CachedStore.
func New(cfg config.Config, st store.Store, log *logger.Logger) *Services {
	hub := NewHub(log)
	return &Services{
		Config:  cfg,
		Catalog: NewCatalogService(st, cfg, log),
		Records: NewRecordService(st, hub, log),
		Reports: NewReportService(st, log),
		Tokens:  NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.LinkTTL),
		Hub:     hub,
	}
}

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/travelcrm/backend/internal/auth"
	"github.com/travelcrm/backend/internal/config"
	"github.com/travelcrm/backend/internal/dashboard"
	"github.com/travelcrm/backend/internal/execution"
	"github.com/travelcrm/backend/internal/handlers"
	"github.com/travelcrm/backend/internal/ledger"
	"github.com/travelcrm/backend/internal/middleware"
	"github.com/travelcrm/backend/internal/registry"
	"github.com/travelcrm/backend/internal/repository"
	"github.com/travelcrm/backend/internal/respond"
	"github.com/travelcrm/backend/internal/router"
	"github.com/travelcrm/backend/internal/services"
)

// buildAPI wires repositories, services and handlers into the /api/v1 router.
// Middleware chain: RequireIdentity -> ValidateBody (mutations only) -> handler.
func buildAPI(
	cfg *config.Config,
	pool *pgxpool.Pool,
	obligationRepo *repository.ObligationRepo,
	validator *services.Validator,
	insertCheck func(ctx context.Context, tx pgx.Tx, args execution.IntegrityCheckArgs) error,
	logger *slog.Logger,
) http.Handler {
	counterpartyRepo := registry.NewRepository(pool)
	engagementRepo := repository.NewEngagementRepo(pool)
	costRepo := repository.NewCostRepo(pool)

	authSvc := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret)

	ledgerSvc := ledger.NewService(ledger.Deps{
		Pool:           pool,
		Counterparties: counterpartyRepo,
		Engagements:    engagementRepo,
		Costs:          costRepo,
		Obligations:    obligationRepo,
		InsertCheck:    insertCheck,
	})

	reconciler := &services.Reconciler{
		Counterparties: counterpartyRepo,
		Costs:          costRepo,
		Engagements:    engagementRepo,
		Obligations:    obligationRepo,
		Loss:           services.NewLossEstimator(cfg, engagementRepo),
		RevenueScope:   cfg.RevenueFallback,
	}

	return router.New(router.Deps{
		Auth:     auth.NewHandler(authSvc, logger, cfg.Debug),
		Registry: registry.NewHandler(registry.NewService(counterpartyRepo), logger, cfg.Debug),
		Finance: &handlers.FinanceHandler{
			Ledger:     ledgerSvc,
			Reconciler: reconciler,
			Resp:       respond.New(logger, cfg.Debug),
		},
		Dashboard:       dashboard.NewHandler(obligationRepo, logger, cfg.Debug),
		RequireIdentity: middleware.RequireIdentity(authSvc),
		Validate: func(schema string) func(http.Handler) http.Handler {
			return middleware.ValidateBody(validator, schema, logger)
		},
	})
}

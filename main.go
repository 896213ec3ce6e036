package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"eventping/internal/auth"
	"eventping/internal/channel"
	"eventping/internal/config"
	"eventping/internal/db"
	"eventping/internal/dispatch"
	"eventping/internal/http/handlers"
	appmw "eventping/internal/http/middleware"
	"eventping/internal/quota"
	"eventping/internal/verify"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.StartTokenCleanupWorker(sqlDB)
	db.StartAggregationWorker(sqlDB)

	if err := db.EnsureBootstrapTenant(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap tenant: %v", err)
	}

	dispatch.InitPrometheusMetrics()

	store := db.NewStore(sqlDB)
	resolver := auth.NewBcryptResolver(store)
	registry := channel.NewRegistry(cfg)
	ledger := quota.NewLedger(store)
	dispatcher := dispatch.New(registry, store, ledger, cfg.SendTimeout)
	verifier := verify.NewService(store, registry, cfg.SendTimeout)

	r := router.New()

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	bearer := appmw.BearerAuth(resolver)

	r.POST("/v1/events", bearer(handlers.IngestEvent(store, ledger, dispatcher)))
	r.GET("/v1/events/{id}", bearer(handlers.EventDetail(store)))

	r.GET("/v1/event-types", bearer(handlers.ListEventTypes(store)))
	r.POST("/v1/event-types", bearer(handlers.CreateEventType(store)))
	r.DELETE("/v1/event-types/{slug}", bearer(handlers.DeleteEventType(store)))
	r.POST("/v1/event-types/quickstart", bearer(handlers.QuickstartEventTypes(store)))

	r.POST("/v1/channels", bearer(handlers.SetChannelIdentifier(store)))
	r.POST("/v1/channels/activate", bearer(handlers.ActivateChannel(store)))
	r.POST("/v1/channels/verify", bearer(handlers.IssueVerification(verifier)))
	r.POST("/v1/channels/verify/confirm", bearer(handlers.ConfirmVerification(verifier)))

	r.GET("/v1/metrics", handlers.TenantMetrics(resolver))

	handler := appmw.RequestLogger(r.Handler)

	log.Printf("eventping listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

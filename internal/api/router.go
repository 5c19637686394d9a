package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apiContext "leadflow/internal/api/context"
	"leadflow/internal/api/handlers"
	"leadflow/internal/api/middleware"
)

type Dependencies struct {
	AuthHandler        *handlers.AuthHandler
	CampaignHandler    *handlers.CampaignHandler
	LeadHandler        *handlers.LeadHandler
	EndpointHandler    *handlers.EndpointHandler
	AutomationHandler  *handlers.AutomationHandler
	IntegrationHandler *handlers.IntegrationHandler
	PublicLinkHandler  *handlers.PublicLinkHandler
	ReceiverHandler    *handlers.ReceiverHandler
	AuditHandler       *handlers.AuditHandler
	HealthHandler      *handlers.HealthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	RateLimiter        *middleware.RateLimiter
	MetricsRegistry    *prometheus.Registry
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	authMid := deps.AuthMiddleware.Handle
	rateAPI := deps.RateLimiter.API
	rateIngest := deps.RateLimiter.Ingest

	// Public ingestion endpoint: secret-authenticated, never bearer-authed
	router.POST("/hooks/:key", chain(deps.ReceiverHandler.Handle, rateIngest))

	// Public share links
	router.GET("/share/:link_key", wrap(deps.PublicLinkHandler.View))

	// Authentication
	router.POST("/api/v1/auth/login", chain(deps.AuthHandler.Login, rateAPI))

	// Campaigns
	router.POST("/api/v1/campaigns", chain(deps.CampaignHandler.Create, authMid, rateAPI))
	router.GET("/api/v1/campaigns", chain(deps.CampaignHandler.List, authMid, rateAPI))
	router.GET("/api/v1/campaigns/:campaign_id", chain(deps.CampaignHandler.Get, authMid, rateAPI))
	router.GET("/api/v1/campaigns/:campaign_id/stats", chain(deps.CampaignHandler.Stats, authMid, rateAPI))

	// Leads
	router.GET("/api/v1/campaigns/:campaign_id/leads", chain(deps.LeadHandler.ListByCampaign, authMid, rateAPI))
	router.GET("/api/v1/leads/:lead_id", chain(deps.LeadHandler.Get, authMid, rateAPI))
	router.PATCH("/api/v1/leads/:lead_id/status", chain(deps.LeadHandler.UpdateStatus, authMid, rateAPI))

	// Webhook endpoints
	router.POST("/api/v1/campaigns/:campaign_id/endpoints", chain(deps.EndpointHandler.Create, authMid, rateAPI))
	router.GET("/api/v1/campaigns/:campaign_id/endpoints", chain(deps.EndpointHandler.List, authMid, rateAPI))
	router.GET("/api/v1/endpoints/:endpoint_id", chain(deps.EndpointHandler.Get, authMid, rateAPI))
	router.PATCH("/api/v1/endpoints/:endpoint_id", chain(deps.EndpointHandler.Update, authMid, rateAPI))
	router.DELETE("/api/v1/endpoints/:endpoint_id", chain(deps.EndpointHandler.Delete, authMid, rateAPI))
	router.POST("/api/v1/endpoints/:endpoint_id/regenerate-secret", chain(deps.EndpointHandler.RegenerateSecret, authMid, rateAPI))
	router.GET("/api/v1/endpoints/:endpoint_id/events", chain(deps.EndpointHandler.Events, authMid, rateAPI))

	// Automations
	router.POST("/api/v1/campaigns/:campaign_id/automations", chain(deps.AutomationHandler.Create, authMid, rateAPI))
	router.GET("/api/v1/campaigns/:campaign_id/automations", chain(deps.AutomationHandler.List, authMid, rateAPI))
	router.GET("/api/v1/automations/:automation_id", chain(deps.AutomationHandler.Get, authMid, rateAPI))
	router.PATCH("/api/v1/automations/:automation_id", chain(deps.AutomationHandler.Update, authMid, rateAPI))
	router.DELETE("/api/v1/automations/:automation_id", chain(deps.AutomationHandler.Delete, authMid, rateAPI))

	// Integrations
	router.POST("/api/v1/integrations", chain(deps.IntegrationHandler.Create, authMid, rateAPI))
	router.GET("/api/v1/integrations", chain(deps.IntegrationHandler.List, authMid, rateAPI))
	router.GET("/api/v1/integrations/:integration_id", chain(deps.IntegrationHandler.Get, authMid, rateAPI))
	router.GET("/api/v1/integrations/:integration_id/status", chain(deps.IntegrationHandler.Status, authMid, rateAPI))

	// Public links management
	router.POST("/api/v1/campaigns/:campaign_id/links", chain(deps.PublicLinkHandler.Create, authMid, rateAPI))
	router.DELETE("/api/v1/links/:link_key", chain(deps.PublicLinkHandler.Revoke, authMid, rateAPI))

	// Activity log
	router.GET("/api/v1/activity", chain(deps.AuditHandler.List, authMid, rateAPI))

	// Operational surface
	router.GET("/healthz", wrap(deps.HealthHandler.Check))
	router.Handler(http.MethodGet, "/metrics",
		promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))

	return router
}

func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap adapts http.HandlerFunc to httprouter.Handle, tucking the route
// params into the request context so handlers keep plain signatures.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/claimledger-go/internal/core/domain"
	"github.com/yndnr/claimledger-go/internal/core/service"
	"github.com/yndnr/claimledger-go/internal/server/httpserver/handler"
	"github.com/yndnr/claimledger-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves every API route.
	Handler *handler.Handler

	// AuthService authenticates issuer and admin requests.
	AuthService *service.AuthService

	// Metrics records request metrics and serves /metrics. Optional.
	Metrics *metric.Registry

	// MetricsAuthRequired puts /metrics behind admin authentication.
	MetricsAuthRequired bool

	// RateLimit is the per-IP rate limit in requests/second (0 = unlimited).
	RateLimit int

	// TrustedProxies may set X-Forwarded-For / X-Real-IP. Zero value trusts none.
	TrustedProxies TrustedProxies

	// CORSAllowedOrigins enables CORS for these origins.
	CORSAllowedOrigins []string

	// EnableAudit logs one line per request.
	EnableAudit bool

	Logger *slog.Logger
}

type routeGroup int

const (
	groupPublic routeGroup = iota
	groupIssuer
	groupAdmin
)

// routes lists every API route and the group guarding it.
var routes = []struct {
	pattern string
	group   routeGroup
}{
	{"GET /health", groupPublic},
	{"GET /ready", groupPublic},
	{"GET /v1/registry", groupPublic},
	{"GET /v1/supply", groupPublic},
	{"GET /v1/claims", groupPublic},
	{"GET /v1/claims/{id}", groupPublic},
	{"GET /v1/claims/{id}/uri", groupPublic},
	{"GET /v1/holders/{address}/claims", groupPublic},
	{"GET /v1/holders/{address}/valid", groupPublic},

	{"POST /v1/claims", groupIssuer},
	{"GET /v1/submissions/{id}", groupIssuer},

	{"GET /admin/v1/status/summary", groupAdmin},
	{"GET /admin/v1/keys", groupAdmin},
	{"GET /admin/v1/cluster/status", groupAdmin},
	{"POST /admin/v1/cluster/join", groupAdmin},
}

// NewRouter builds the top-level handler: each route is wrapped in the
// middleware chain of its group before reaching the API handler.
func NewRouter(cfg *RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	common := []Middleware{
		RequestID(cfg.Logger),
		ClientIP(cfg.TrustedProxies),
		Recover(),
		CORS(cfg.CORSAllowedOrigins),
		Metrics(cfg.Metrics),
	}
	if cfg.EnableAudit {
		common = append(common, Audit())
	}
	common = append(common, RateLimit(cfg.AuthService, cfg.RateLimit))

	chain := func(h http.Handler, extra ...Middleware) http.Handler {
		mws := make([]Middleware, 0, len(common)+len(extra))
		mws = append(mws, common...)
		mws = append(mws, extra...)
		return Chain(h, mws...)
	}

	public := chain(cfg.Handler)
	issuer := chain(cfg.Handler, Auth(cfg.AuthService, domain.RoleIssuer))
	admin := chain(cfg.Handler, Auth(cfg.AuthService, domain.RoleAdmin))

	mux := http.NewServeMux()
	for _, rt := range routes {
		switch rt.group {
		case groupIssuer:
			mux.Handle(rt.pattern, issuer)
		case groupAdmin:
			mux.Handle(rt.pattern, admin)
		default:
			mux.Handle(rt.pattern, public)
		}
	}

	if cfg.Metrics != nil {
		if cfg.MetricsAuthRequired {
			mux.Handle("GET /metrics", chain(cfg.Metrics.Handler(), Auth(cfg.AuthService, domain.RoleAdmin)))
		} else {
			mux.Handle("GET /metrics", chain(cfg.Metrics.Handler()))
		}
	}

	mux.Handle("/", chain(http.HandlerFunc(notFound)))
	return mux
}

func notFound(w http.ResponseWriter, r *http.Request) {
	handler.WriteError(w, r, errRouteNotFound.WithDetails(r.Method+" "+r.URL.Path))
}

var errRouteNotFound = domain.NewDomainError("CL-SYS-4040", "route not found")

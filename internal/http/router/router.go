package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/user-center/internal/health"
	"github.com/sandeepkv93/user-center/internal/http/handler"
	"github.com/sandeepkv93/user-center/internal/http/middleware"
	"github.com/sandeepkv93/user-center/internal/http/response"
	"github.com/sandeepkv93/user-center/internal/observability"
	"github.com/sandeepkv93/user-center/internal/service"
	"github.com/sandeepkv93/user-center/internal/web"
)

// avatarBodyLimit leaves room for multipart framing around the largest
// accepted image.
const avatarBodyLimit = service.MaxAvatarSize + 512<<10

type Dependencies struct {
	UserHandler    *handler.UserHandler
	AvatarHandler  *handler.AvatarHandler
	Pages          *web.Pages
	Readiness      *health.ProbeRunner
	HTTPMetrics    *observability.HTTPMetrics
	CORSOrigins    []string
	BodyLimitBytes int64
	// APIRateLimiter overrides the per-instance limiter built from
	// APIRateLimitRPM.
	APIRateLimiter  func(http.Handler) http.Handler
	APIRateLimitRPM int
	EnableOTelHTTP  bool
}

// Route binds one method and chi pattern to a handler plus the middleware
// that applies only to it.
type Route struct {
	Method     string
	Pattern    string
	Handler    http.HandlerFunc
	Middleware []func(http.Handler) http.Handler
}

// Routes is the complete route table. Optional features (avatars, metrics,
// pages) contribute routes only when their dependency is set.
func Routes(dep Dependencies) []Route {
	apiLimit := dep.APIRateLimiter
	if apiLimit == nil {
		apiLimit = middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware()
	}
	bodyLimit := dep.BodyLimitBytes
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	api := []func(http.Handler) http.Handler{apiLimit, middleware.BodyLimit(bodyLimit)}

	routes := []Route{
		{Method: http.MethodGet, Pattern: "/health/live", Handler: live},
		{Method: http.MethodGet, Pattern: "/health/ready", Handler: ready(dep.Readiness)},
	}
	if dep.HTTPMetrics != nil {
		routes = append(routes, Route{Method: http.MethodGet, Pattern: "/metrics", Handler: dep.HTTPMetrics.Handler().ServeHTTP})
	}
	if h := dep.UserHandler; h != nil {
		routes = append(routes,
			Route{Method: http.MethodGet, Pattern: "/api/users", Handler: h.List, Middleware: api},
			Route{Method: http.MethodPost, Pattern: "/api/users", Handler: h.Create, Middleware: api},
			Route{Method: http.MethodGet, Pattern: "/api/users/{id}", Handler: h.GetByID, Middleware: api},
			Route{Method: http.MethodPatch, Pattern: "/api/users/{id}", Handler: h.Update, Middleware: api},
			Route{Method: http.MethodDelete, Pattern: "/api/users/{id}", Handler: h.Delete, Middleware: api},
		)
	}
	if h := dep.AvatarHandler; h != nil {
		routes = append(routes,
			Route{
				Method:     http.MethodPost,
				Pattern:    "/api/users/{id}/avatar",
				Handler:    h.Upload,
				Middleware: []func(http.Handler) http.Handler{apiLimit, middleware.BodyLimit(avatarBodyLimit)},
			},
			Route{Method: http.MethodGet, Pattern: service.AvatarURLPrefix + "*", Handler: h.Serve},
		)
	}
	if p := dep.Pages; p != nil {
		routes = append(routes,
			Route{Method: http.MethodGet, Pattern: "/", Handler: p.Index},
			Route{Method: http.MethodGet, Pattern: web.ListPath, Handler: p.List},
			Route{Method: http.MethodGet, Pattern: web.ListPath + "/new", Handler: p.New},
			Route{Method: http.MethodGet, Pattern: web.ListPath + "/{id}", Handler: p.Edit},
			Route{Method: http.MethodGet, Pattern: "/static/*", Handler: p.Static().ServeHTTP},
		)
	}
	return routes
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.PrometheusMetrics(dep.HTTPMetrics))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))

	for _, rt := range Routes(dep) {
		r.With(rt.Middleware...).Method(rt.Method, rt.Pattern, rt.Handler)
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

func live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(probes *health.ProbeRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, results := probes.Ready(r.Context())
		if results == nil {
			results = []health.CheckResult{}
		}
		if !ok {
			response.JSON(w, r, http.StatusServiceUnavailable, map[string]any{"status": "unready", "checks": results})
			return
		}
		response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
	}
}

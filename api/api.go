package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bookdepot/stock-service/config"
)

const (
	ApiPath          = "/api/v1"
	StockPath        = "/stock"
	AvailabilityPath = "/availability"
	BundlePath       = "/bundle"
	FulfillmentPath  = "/fulfillment"
	UserPath         = "/user"
	EnvPath          = "/env"
)

func ConfigureRouter(cfg *config.Config, stockSvc StockService, availSvc AvailabilityService, bundleSvc BundleService, fulfillSvc FulfillmentService, userSvc UserService) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		// AllowedOrigins:   []string{"https://foo.com"}, // Use this to allow specific origin hosts
		AllowedOrigins: []string{"https://*.bookdepot.com", "http://*.bookdepot.com", "http://localhost*", "https://localhost*"},
		// AllowOriginFunc:  func(r *http.Request, origin string) bool { return true },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(Logging)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("UP"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route(EnvPath, NewEnvApi(cfg).ConfigureRouter)

	r.With(Authenticate(userSvc)).Route(ApiPath, func(r chi.Router) {
		r.Route(StockPath, NewStockApi(stockSvc).ConfigureRouter)
		r.Route(AvailabilityPath, NewAvailabilityApi(availSvc).ConfigureRouter)
		r.Route(BundlePath, NewBundleApi(bundleSvc).ConfigureRouter)
		r.Route(FulfillmentPath, NewFulfillmentApi(fulfillSvc).ConfigureRouter)
		r.Route(UserPath, NewUserApi(userSvc).ConfigureRouter)
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborline/marketplace-backend/api/controllers"
	"github.com/harborline/marketplace-backend/api/middleware"
	cartsvc "github.com/harborline/marketplace-backend/internal/cart"
	checkoutsvc "github.com/harborline/marketplace-backend/internal/checkout"
	ordersvc "github.com/harborline/marketplace-backend/internal/orders"
	"github.com/harborline/marketplace-backend/pkg/config"
	"github.com/harborline/marketplace-backend/pkg/db"
	"github.com/harborline/marketplace-backend/pkg/logger"
	pkgredis "github.com/harborline/marketplace-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	orderService *ordersvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CustomerContext(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/cart", controllers.GetCart(cartService, logg))
		r.Put("/cart", controllers.PutCart(cartService, logg))
		r.Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Get("/orders", controllers.ListOrders(orderService, logg))
		r.Get("/orders/{orderID}", controllers.GetOrder(orderService, logg))
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IstiakDeveloper/orgreeni/api/controllers"
	"github.com/IstiakDeveloper/orgreeni/api/middleware"
	"github.com/IstiakDeveloper/orgreeni/pkg/auth"
	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/redis"
)

// Services are the domain services the API drives. Nil services answer
// with an internal error rather than panicking.
type Services struct {
	Cart           controllers.CartService
	Checkout       controllers.CheckoutService
	CustomerOrders controllers.CustomerOrderService
	AdminOrders    controllers.AdminOrderService
	Inventory      controllers.InventoryService
	Delivery       controllers.DeliveryService
	Settings       controllers.SettingsService
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	svc Services,
) http.Handler {
	// A nil registry disables both the HTTP metrics and /metrics.
	var httpMetrics *metrics.HTTPMetrics
	if registry != nil {
		httpMetrics = metrics.NewHTTPMetrics(registry)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var (
		idemStore redis.IdempotencyStore
		rateStore middleware.RateLimiter
		readyDeps = map[string]controllers.Pinger{"db": dbP}
	)
	if redisClient != nil {
		idemStore = redisClient
		rateStore = redisClient
		readyDeps["redis"] = redisClient
	}

	lookupPolicy := middleware.NewLookupRateLimitPolicy(
		"order_lookup",
		cfg.RateLimit.LookupWindow,
		cfg.RateLimit.LookupIPLimit,
		cfg.RateLimit.LookupPhoneLimit,
	)
	lookupLimit := middleware.LookupRateLimit(lookupPolicy, rateStore, logg)

	// Checkout and cancellation keep their keys longer; clients retry them
	// across app restarts.
	idempotent := middleware.Idempotent(idemStore, cfg.Eventing.IdempotencyTTL, logg)
	idempotentCritical := middleware.Idempotent(idemStore, cfg.Eventing.CriticalIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(auth.NewVerifier(cfg.JWT), logg))

		r.Route("/delivery", func(r chi.Router) {
			r.Get("/areas", controllers.DeliveryAreas(svc.Delivery, logg))
			r.Get("/slots", controllers.DeliverySlots(svc.Delivery, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.With(middleware.RequireUser(logg)).Post("/merge", controllers.CartMerge(svc.Cart, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOwner(logg))
				r.Get("/", controllers.CartGet(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(svc.Cart, logg))
				r.Delete("/coupon", controllers.CartRemoveCoupon(svc.Cart, logg))
				r.Put("/shipping-area", controllers.CartSetShippingArea(svc.Cart, logg))
				r.Put("/notes", controllers.CartAddNotes(svc.Cart, logg))
				r.Get("/shipping-options", controllers.CartShippingOptions(svc.Cart, logg))
			})
		})

		r.With(middleware.RequireOwner(logg), idempotentCritical).Post("/checkout", controllers.Checkout(svc.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireUser(logg)).Get("/", controllers.MyOrders(svc.CustomerOrders, logg))
			r.With(lookupLimit).Get("/track", controllers.OrderTrack(svc.CustomerOrders, logg))
			r.With(lookupLimit).Get("/{orderNumber}", controllers.OrderDetail(svc.CustomerOrders, logg))
			r.With(lookupLimit, idempotentCritical).Post("/{orderNumber}/cancel", controllers.OrderCancel(svc.CustomerOrders, logg))
			r.With(lookupLimit, idempotent).Put("/{orderNumber}/payment", controllers.OrderPaymentInfo(svc.CustomerOrders, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminListOrders(svc.AdminOrders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(svc.AdminOrders, logg))
				r.Delete("/{orderId}", controllers.AdminDeleteOrder(svc.AdminOrders, logg))
				r.Group(func(r chi.Router) {
					r.Use(idempotent)
					r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(svc.AdminOrders, logg))
					r.Patch("/{orderId}/payment-status", controllers.AdminUpdatePaymentStatus(svc.AdminOrders, logg))
					r.Patch("/{orderId}/assign", controllers.AdminAssignDeliveryPerson(svc.AdminOrders, logg))
					r.Post("/{orderId}/notes", controllers.AdminAddOrderNote(svc.AdminOrders, logg))
				})
			})

			r.Route("/inventory", func(r chi.Router) {
				r.With(idempotent).Post("/adjustments", controllers.AdminAdjustStock(svc.Inventory, logg))
				r.Get("/low-stock", controllers.AdminLowStock(svc.Inventory, logg))
				r.Get("/stats", controllers.AdminInventoryStats(svc.Inventory, logg))
				r.Get("/transactions", controllers.AdminInventoryTransactions(svc.Inventory, logg))
				r.Get("/products/{productId}/stock", controllers.AdminProductStock(svc.Inventory, logg))
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", controllers.AdminGetSettings(svc.Settings, logg))
				r.Put("/{key}", controllers.AdminUpdateSetting(svc.Settings, logg))
			})
		})
	})

	return r
}

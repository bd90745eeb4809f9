package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phonelife/storefront/api/controllers"
	"github.com/phonelife/storefront/api/middleware"
	"github.com/phonelife/storefront/internal/backoffice"
	"github.com/phonelife/storefront/internal/bookings"
	"github.com/phonelife/storefront/internal/catalog"
	checkoutsvc "github.com/phonelife/storefront/internal/checkout"
	"github.com/phonelife/storefront/pkg/config"
	"github.com/phonelife/storefront/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gatherer prometheus.Gatherer,
	readiness map[string]controllers.Pinger,
	carts controllers.CartOpener,
	catalogService catalog.Service,
	checkoutService checkoutsvc.Service,
	bookingService bookings.Service,
	backofficeService backoffice.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, middleware.SessionCookieName(cfg.Cart)),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/categories", controllers.CategoryList(catalogService, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Get("/{productId}", controllers.ProductDetail(catalogService, logg))
			r.Post("/{productId}/notify", controllers.ProductNotify(catalogService, logg))
		})
		r.Post("/appointments", controllers.BookAppointment(bookingService, logg))
		r.Post("/quotes", controllers.RequestQuote(bookingService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(cfg.Cart, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(carts, logg))
				r.Delete("/", controllers.CartClear(carts, logg))
				r.Post("/items", controllers.CartAddItem(carts, catalogService, logg))
				r.Post("/items/{productId}/decrement", controllers.CartDecrementItem(carts, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(carts, logg))
			})
			r.Post("/checkout", controllers.Checkout(checkoutService, carts, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Get("/dashboard", controllers.AdminDashboard(backofficeService, logg))
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", controllers.AdminAppointments(backofficeService, logg))
			r.Delete("/{appointmentId}", controllers.AdminDeleteAppointment(backofficeService, logg))
		})
		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.AdminQuotes(backofficeService, logg))
			r.Delete("/{quoteId}", controllers.AdminDeleteQuote(backofficeService, logg))
		})
		r.Get("/orders", controllers.AdminOrders(backofficeService, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProducts(backofficeService, logg))
			r.Post("/", controllers.AdminCreateProduct(backofficeService, logg))
			r.Put("/{productId}", controllers.AdminUpdateProduct(backofficeService, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(backofficeService, logg))
			r.Patch("/{productId}/stock", controllers.AdminUpdateStock(backofficeService, logg))
			r.Get("/{productId}/notifications", controllers.AdminNotifications(backofficeService, logg))
		})
	})

	return r
}

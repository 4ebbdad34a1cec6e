package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pizzeria/internal/commons"
	customercontroller "pizzeria/internal/customer/controller"
	discountcontroller "pizzeria/internal/discount/controller"
	"pizzeria/internal/menu"
	ordercontroller "pizzeria/internal/order/controller"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handlers struct {
	Menu      *menu.Controller
	Customers *customercontroller.CustomerController
	Orders    *ordercontroller.OrderController
	Discounts *discountcontroller.DiscountController
	DB        Pinger
}

func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", health(h.DB, logger))

	r.Get("/menu", h.Menu.HandleListMenu)

	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.Customers.Register)
		r.Post("/login", h.Customers.Login)
		r.Patch("/{customerId}", h.Customers.Update)
		r.Get("/{customerId}/orders", h.Orders.ListCustomerOrders)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.Orders.CreateOrder)
		r.Get("/{orderId}", h.Orders.GetOrder)
		r.Get("/{orderId}/status", h.Orders.OrderStatus)
		r.Post("/{orderId}/cancel", h.Orders.CancelOrder)
	})

	r.Post("/deliveries/{deliveryId}/complete", h.Orders.CompleteDelivery)

	r.Post("/discount-codes", h.Discounts.RegisterCode)
	r.Get("/discount-codes/{code}", h.Discounts.CheckCode)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

func health(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Warn("health check failed", zap.Error(err))
				commons.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}, logger)
				return
			}
		}
		commons.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}

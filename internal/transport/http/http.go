package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/staymarket/order/internal/notify"
	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/services/ordersvc"
	confirmpickup "github.com/staymarket/order/internal/transport/http/confirm_pickup"
	createorder "github.com/staymarket/order/internal/transport/http/create_order"
	getorder "github.com/staymarket/order/internal/transport/http/get_order"
	listorders "github.com/staymarket/order/internal/transport/http/list_orders"
	updatestatus "github.com/staymarket/order/internal/transport/http/update_status"
	"github.com/staymarket/order/internal/transport/ws"
	"github.com/staymarket/order/pkg/http/middleware/trace"
	"github.com/staymarket/order/pkg/logger"
)

type service interface {
	CreateOrder(ctx context.Context, model ordersvc.CreateOrderModel) (order.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, model ordersvc.UpdateStatusModel) (order.Order, error)
	ConfirmPickup(ctx context.Context, orderID int64) (order.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*order.Order, error)
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
	hub     *notify.Hub
}

func NewHTTPTransport(service service, hub *notify.Hub) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
		hub:     hub,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Patch("/orders/{orderID}/status", h.updateStatus)
		r.Post("/orders/{orderID}/pickup", h.confirmPickup)
		r.Get("/notifications/ws", ws.Handler(h.hub))
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) updateStatus(w http.ResponseWriter, r *http.Request) {
	updatestatus.UpdateStatus(w, r, h.service)
}

func (h *HTTPTransport) confirmPickup(w http.ResponseWriter, r *http.Request) {
	confirmpickup.ConfirmPickup(w, r, h.service)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(trace.NewTraceMiddleware)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}

package getorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/staymarket/order/internal/service/models/order"
)

// service is an interface for the service layer.
type service interface {
	GetOrder(ctx context.Context, orderID int64) (*order.Order, error)
}

// GetOrder handles the get order request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	o, err := service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		slog.Error("Error getting order", "order_id", orderID, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(o); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for get order", "error", err)
	}
}

package confirmpickup

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
	ConfirmPickup(ctx context.Context, orderID int64) (order.Order, error)
}

// ConfirmPickup handles the pickup confirmation request.
func ConfirmPickup(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	updated, err := service.ConfirmPickup(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, order.ErrPickupNotDelivered):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		slog.Error("Error confirming pickup", "order_id", orderID, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(updated); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for pickup confirmation", "error", err)
	}
}

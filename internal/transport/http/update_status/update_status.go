package updatestatus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/services/ordersvc"
)

// service is an interface for the service layer.
type service interface {
	UpdateStatus(ctx context.Context, orderID int64, model ordersvc.UpdateStatusModel) (order.Order, error)
}

// updateStatusRequest represents a status update request.
type updateStatusRequest struct {
	Status            string     `json:"status"`
	DeliveryNotes     *string    `json:"deliveryNotes,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

// UpdateStatus handles the status update request.
func UpdateStatus(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)

		return
	}

	req := updateStatusRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for status update", "error", err)

		return
	}

	status, err := order.ParseStatus(req.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	updated, err := service.UpdateStatus(r.Context(), orderID, ordersvc.UpdateStatusModel{
		Status:            status,
		DeliveryNotes:     req.DeliveryNotes,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		var transitionErr *order.InvalidTransitionError
		switch {
		case errors.As(err, &transitionErr):
			http.Error(w, transitionErr.Error(), http.StatusConflict)
		case errors.Is(err, order.ErrOrderNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		slog.Error("Error updating order status", "order_id", orderID, "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(updated); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for status update", "error", err)
	}
}

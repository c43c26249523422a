package createorder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/staymarket/order/internal/service/models/order"
	"github.com/staymarket/order/internal/service/models/product"
	"github.com/staymarket/order/internal/service/services/ordersvc"
)

// service is an interface for the service layer.
type service interface {
	CreateOrder(ctx context.Context, model ordersvc.CreateOrderModel) (order.Order, error)
}

// itemInCreateOrderRequest represents an item in a create order request.
type itemInCreateOrderRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity"  validate:"gt=0"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	HotelID           int64                      `json:"hotelId"      validate:"gt=0"`
	MerchantID        int64                      `json:"merchantId"   validate:"gt=0"`
	ClientID          *int64                     `json:"clientId,omitempty"`
	CustomerName      string                     `json:"customerName" validate:"required"`
	CustomerRoom      string                     `json:"customerRoom" validate:"required"`
	DeliveryNotes     string                     `json:"deliveryNotes"`
	EstimatedDelivery *time.Time                 `json:"estimatedDelivery,omitempty"`
	Items             []itemInCreateOrderRequest `json:"items"        validate:"required,min=1,dive"`
}

// Validate validates the create order request.
func (r *createOrderRequest) Validate() error {
	return validator.New().Struct(r)
}

// toModel converts createOrderRequest to the service layer model.
func (r *createOrderRequest) toModel() ordersvc.CreateOrderModel {
	items := make([]ordersvc.CreateOrderItemModel, len(r.Items))
	for i, item := range r.Items {
		items[i] = ordersvc.CreateOrderItemModel{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	return ordersvc.CreateOrderModel{
		HotelID:           r.HotelID,
		MerchantID:        r.MerchantID,
		ClientID:          r.ClientID,
		CustomerName:      r.CustomerName,
		CustomerRoom:      r.CustomerRoom,
		DeliveryNotes:     r.DeliveryNotes,
		EstimatedDelivery: r.EstimatedDelivery,
		Items:             items,
	}
}

// CreateOrder handles the create order request.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderReq := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for create order", "error", err)

		return
	}

	if err := orderReq.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for create order", "error", err)

		return
	}

	created, err := service.CreateOrder(r.Context(), orderReq.toModel())
	if err != nil {
		var stockErr *product.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			http.Error(w, stockErr.Error(), http.StatusConflict)
		case errors.Is(err, product.ErrProductNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ordersvc.ErrNoItems):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		slog.Error("Error creating order", "error", err)

		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for create order", "error", err)
	}
}

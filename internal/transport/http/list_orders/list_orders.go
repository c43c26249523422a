package listorders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/staymarket/order/internal/service/models/order"
)

// service is an interface for the service layer.
type service interface {
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

// ListOrders handles the list orders request. Filters by hotel_id,
// merchant_id or client_id query parameters; limit and offset page the
// result.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	filter := &order.QueryOrdersModel{}

	if v, ok := parseIDParam(r, "hotel_id"); ok {
		filter.HotelIds = []int64{v}
	}
	if v, ok := parseIDParam(r, "merchant_id"); ok {
		filter.MerchantIds = []int64{v}
	}
	if v, ok := parseIDParam(r, "client_id"); ok {
		filter.ClientIds = []int64{v}
	}
	if v, ok := parseIDParam(r, "limit"); ok {
		filter.Limit = int(v)
	}
	if v, ok := parseIDParam(r, "offset"); ok {
		filter.Offset = int(v)
	}

	orders, err := service.GetOrders(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing orders", "error", err)

		return
	}

	if err := json.NewEncoder(w).Encode(orders); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error sending response for list orders", "error", err)
	}
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

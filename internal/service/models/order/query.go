package order

// QueryOrdersModel represents filter parameters for querying orders.
type QueryOrdersModel struct {
	Ids         []int64 `json:"ids,omitempty"`
	HotelIds    []int64 `json:"hotelIds,omitempty"`
	MerchantIds []int64 `json:"merchantIds,omitempty"`
	ClientIds   []int64 `json:"clientIds,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Offset      int     `json:"offset,omitempty"`
}

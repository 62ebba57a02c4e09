package models

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

type OrderResponse struct {
	Orders []Order  `json:"orders"`
	Meta   MetaData `json:"meta"`
}

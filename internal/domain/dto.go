package domain

// OrderLine is one line of a confirmed cart: qty units of one product.
// Destination comes from the caller's catalog; empty means kitchen.
type OrderLine struct {
	ProductID   string      `json:"product_id"`
	Name        string      `json:"name"`
	Price       float64     `json:"price"`
	Qty         int         `json:"qty"`
	Destination Destination `json:"destination,omitempty"`
}

type AddOrderRequest struct {
	Items []OrderLine `json:"items"`
}

type AddCustomProductRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type UpdateItemStateRequest struct {
	State ItemState `json:"state"`
}

// TableView is the read model returned to clients: the aggregate plus the
// derived numbers consumers would otherwise recompute.
type TableView struct {
	TableID        string          `json:"table_id"`
	Items          []OrderItem     `json:"items"`
	CallRequested  bool            `json:"call_requested"`
	BillRequested  bool            `json:"bill_requested"`
	CustomProducts []CustomProduct `json:"custom_products"`
	PendingCounts  map[string]int  `json:"pending_counts"`
	ServedSubtotal float64         `json:"served_subtotal"`
	BillSubtotal   float64         `json:"bill_subtotal"`
}

func NewTableView(tableID string, t TableAggregate) TableView {
	return TableView{
		TableID:        tableID,
		Items:          t.Items,
		CallRequested:  t.CallRequested,
		BillRequested:  t.BillRequested,
		CustomProducts: t.CustomProducts,
		PendingCounts:  t.PendingCounts(),
		ServedSubtotal: t.ServedSubtotal(),
		BillSubtotal:   t.BillSubtotal(),
	}
}

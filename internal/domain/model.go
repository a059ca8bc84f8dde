package domain

// ItemState is the kitchen-side lifecycle of a single order item instance.
// Bar-destined items never leave StatePending; they are served directly.
type ItemState string

const (
	StatePending          ItemState = "pending"
	StateQueuedForKitchen ItemState = "queuedForKitchen"
	StatePreparing        ItemState = "preparing"
	StateReady            ItemState = "ready"
)

type Destination string

const (
	DestKitchen Destination = "kitchen"
	DestBar     Destination = "bar"
)

// OrderItem is one physical unit of a product. An order of "3 beers" becomes
// three OrderItems with the same product id and distinct instance keys.
type OrderItem struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	UnitPrice   float64     `json:"unitPrice"`
	InstanceKey int64       `json:"instanceKey"`
	State       ItemState   `json:"state"`
	Served      bool        `json:"served"`
	Destination Destination `json:"destination"`
	Custom      bool        `json:"custom,omitempty"`
}

// CustomProduct is an ad-hoc product minted by staff for one table. Kept in a
// per-table registry so repeat orders of the same item reuse its id instead of
// minting duplicates.
type CustomProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// TableAggregate is the full mutable state of one table.
type TableAggregate struct {
	Items          []OrderItem     `json:"items"`
	CallRequested  bool            `json:"callRequested"`
	BillRequested  bool            `json:"billRequested"`
	CustomProducts []CustomProduct `json:"customProducts"`
}

// Empty reports whether the table is indistinguishable from "never ordered".
func (t TableAggregate) Empty() bool {
	return len(t.Items) == 0 && !t.CallRequested && !t.BillRequested
}

// PendingCounts returns the number of not-yet-served instances per product id.
func (t TableAggregate) PendingCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range t.Items {
		if !it.Served {
			counts[it.ID]++
		}
	}
	return counts
}

// ServedSubtotal sums the price of served items only. This is the amount the
// cashier settles against.
func (t TableAggregate) ServedSubtotal() float64 {
	var sum float64
	for _, it := range t.Items {
		if it.Served {
			sum += it.UnitPrice
		}
	}
	return sum
}

// BillSubtotal sums all items, served or not. Shown once a bill has been
// requested so the guest sees everything they ordered.
func (t TableAggregate) BillSubtotal() float64 {
	var sum float64
	for _, it := range t.Items {
		sum += it.UnitPrice
	}
	return sum
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (t TableAggregate) Clone() TableAggregate {
	out := t
	if t.Items != nil {
		out.Items = make([]OrderItem, len(t.Items))
		copy(out.Items, t.Items)
	}
	if t.CustomProducts != nil {
		out.CustomProducts = make([]CustomProduct, len(t.CustomProducts))
		copy(out.CustomProducts, t.CustomProducts)
	}
	return out
}

// Tables is the whole restaurant: table id -> aggregate.
type Tables map[string]TableAggregate

func (ts Tables) Clone() Tables {
	out := make(Tables, len(ts))
	for id, t := range ts {
		out[id] = t.Clone()
	}
	return out
}

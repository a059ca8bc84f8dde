package client

import (
	"encoding/json"
	"net/http"
	"strconv"

	"table-service/internal/domain"
)

// routes builds the role's HTTP surface. The split mirrors who may act on a
// table: customers order and raise signals, waiters run the floor, the
// kitchen advances item states, the cashier settles.
func (c *Client) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tables/{table_id}", c.getTable)

	switch c.role {
	case RoleCustomer:
		mux.HandleFunc("POST /tables/{table_id}/orders", c.addOrder)
		mux.HandleFunc("POST /tables/{table_id}/call", c.requestCall)
		mux.HandleFunc("POST /tables/{table_id}/bill", c.requestBill)
	case RoleWaiter:
		mux.HandleFunc("GET /tables", c.listTables)
		mux.HandleFunc("POST /tables/{table_id}/items/{instance_key}/confirm", c.confirmItem)
		mux.HandleFunc("POST /tables/{table_id}/items/{instance_key}/serve", c.serveItem)
		mux.HandleFunc("POST /tables/{table_id}/products/{product_id}/increment", c.incrementItem)
		mux.HandleFunc("POST /tables/{table_id}/products/{product_id}/decrement", c.decrementItem)
		mux.HandleFunc("POST /tables/{table_id}/custom-products", c.addCustomProduct)
		mux.HandleFunc("POST /tables/{table_id}/call/ack", c.acknowledgeCall)
		mux.HandleFunc("POST /tables/{table_id}/bill/ack", c.acknowledgeBill)
		mux.HandleFunc("POST /tables/{table_id}/settle", c.settle)
	case RoleKitchen:
		mux.HandleFunc("GET /tables", c.listTables)
		mux.HandleFunc("POST /tables/{table_id}/items/{instance_key}/state", c.updateItemState)
	case RoleCashier:
		mux.HandleFunc("GET /tables", c.listTables)
		mux.HandleFunc("GET /tables/{table_id}/bill", c.getBill)
		mux.HandleFunc("POST /tables/{table_id}/products/{product_id}/increment", c.incrementItem)
		mux.HandleFunc("POST /tables/{table_id}/products/{product_id}/decrement", c.decrementItem)
		mux.HandleFunc("POST /tables/{table_id}/custom-products", c.addCustomProduct)
		mux.HandleFunc("POST /tables/{table_id}/settle", c.settle)
	}
	return mux
}

func (c *Client) getTable(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) listTables(w http.ResponseWriter, r *http.Request) {
	snapshot := c.store.Snapshot()
	views := make(map[string]domain.TableView, len(snapshot))
	for id, t := range snapshot {
		views[id] = domain.NewTableView(id, t)
	}
	writeJSON(w, http.StatusOK, views)
}

// addOrder validates the confirmed cart and expands it into the table. The
// store trusts its inputs; all validation lives here on the caller side.
func (c *Client) addOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	var req domain.AddOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeProblem(w, http.StatusBadRequest, "validation", "at least one item is required")
		return
	}
	for _, ln := range req.Items {
		if ln.ProductID == "" || ln.Name == "" {
			writeProblem(w, http.StatusBadRequest, "validation", "product id and name are required")
			return
		}
		if ln.Qty <= 0 {
			writeProblem(w, http.StatusBadRequest, "validation", "invalid quantity for item "+ln.Name)
			return
		}
		if ln.Price <= 0 {
			writeProblem(w, http.StatusBadRequest, "validation", "invalid price for item "+ln.Name)
			return
		}
	}
	c.store.AddOrder(r.Context(), id, req.Items)
	writeJSON(w, http.StatusCreated, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) addCustomProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	var req domain.AddCustomProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if req.Name == "" {
		writeProblem(w, http.StatusBadRequest, "validation", "name is required")
		return
	}
	if req.Price <= 0 {
		writeProblem(w, http.StatusBadRequest, "validation", "price must be positive")
		return
	}
	prod := c.store.AddCustomProduct(r.Context(), id, req.Name, req.Price)
	writeJSON(w, http.StatusCreated, prod)
}

func (c *Client) confirmItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}
	c.store.ConfirmItem(r.Context(), id, key)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) serveItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}
	c.store.MarkServed(r.Context(), id, key)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) updateItemState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	key, ok := instanceKey(w, r)
	if !ok {
		return
	}
	var req domain.UpdateItemStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	switch req.State {
	case domain.StateQueuedForKitchen, domain.StatePreparing, domain.StateReady:
	default:
		writeProblem(w, http.StatusBadRequest, "validation", "state must be queuedForKitchen, preparing or ready")
		return
	}
	c.store.UpdateItemState(r.Context(), id, key, req.State)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) incrementItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.IncrementItem(r.Context(), id, r.PathValue("product_id"))
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) decrementItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.DecrementItem(r.Context(), id, r.PathValue("product_id"))
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) requestCall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.RequestCall(r.Context(), id)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) acknowledgeCall(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.AcknowledgeCall(r.Context(), id)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) requestBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.RequestBill(r.Context(), id)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) acknowledgeBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.AcknowledgeBill(r.Context(), id)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func (c *Client) getBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	t := c.store.Table(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"table_id":        id,
		"bill_requested":  t.BillRequested,
		"served_subtotal": t.ServedSubtotal(),
		"bill_subtotal":   t.BillSubtotal(),
	})
}

func (c *Client) settle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("table_id")
	c.store.Settle(r.Context(), id)
	writeJSON(w, http.StatusOK, domain.NewTableView(id, c.store.Table(id)))
}

func instanceKey(w http.ResponseWriter, r *http.Request) (int64, bool) {
	key, err := strconv.ParseInt(r.PathValue("instance_key"), 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "validation", "instance key must be an integer")
		return 0, false
	}
	return key, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

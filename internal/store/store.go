package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"table-service/internal/common/logger"
	"table-service/internal/domain"
)

// SyncPublisher broadcasts the full table map after a mutation.
type SyncPublisher interface {
	PublishSync(ctx context.Context, msg domain.SyncMessage) error
}

// NotifyPublisher broadcasts one-shot cues. No acknowledgement, no replay.
type NotifyPublisher interface {
	PublishNotify(ctx context.Context, msg domain.NotifyMessage) error
}

// TableStore is the client-local authoritative copy of every table. All
// operations are total over the map: a missing table is synthesized empty,
// never reported as an error. Each mutation ends by publishing the entire
// map on the sync bus; remote stores replace their copy wholesale.
//
// The mutex exists because one client process mutates from two sides: its
// HTTP handlers and its sync-bus listener. Across clients there is no lock,
// only last-writer-wins snapshot replacement.
type TableStore struct {
	mu     sync.RWMutex
	tables domain.Tables

	sync   SyncPublisher
	notify NotifyPublisher
	lg     *logger.Logger

	lastKey int64
}

func New(sp SyncPublisher, np NotifyPublisher, lg *logger.Logger) *TableStore {
	return &TableStore{
		tables: make(domain.Tables),
		sync:   sp,
		notify: np,
		lg:     lg,
	}
}

// nextKey returns a strictly increasing time-based instance key. The bump
// keeps keys unique even when one call inserts several items within the
// same millisecond. Callers must hold mu.
func (s *TableStore) nextKey() int64 {
	key := time.Now().UnixMilli()
	if key <= s.lastKey {
		key = s.lastKey + 1
	}
	s.lastKey = key
	return key
}

// publish broadcasts the current map. Failures are logged and dropped: the
// next mutation's snapshot catches everyone up, there is no retry queue.
func (s *TableStore) publish(ctx context.Context, kind domain.EventKind, tableID string) {
	msg := domain.SyncMessage{Tables: s.tables.Clone(), EventKind: kind, TableID: tableID}
	if err := s.sync.PublishSync(ctx, msg); err != nil {
		s.lg.Error("sync_publish_failed", err, map[string]any{
			"table_id": tableID, "event_kind": string(kind),
		})
	}
}

func (s *TableStore) notifyTable(ctx context.Context, tableID string, kind domain.NotifyKind) {
	msg := domain.NotifyMessage{TableID: tableID, Message: kind}
	if err := s.notify.PublishNotify(ctx, msg); err != nil {
		s.lg.Error("notify_publish_failed", err, map[string]any{
			"table_id": tableID, "message": string(kind),
		})
	}
}

// AddOrder expands each line into qty single-unit items with distinct
// instance keys and appends them in pending state.
func (s *TableStore) AddOrder(ctx context.Context, tableID string, lines []domain.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	for _, ln := range lines {
		if ln.Qty <= 0 {
			continue
		}
		dest := ln.Destination
		if dest == "" {
			dest = domain.DestKitchen
		}
		for i := 0; i < ln.Qty; i++ {
			t.Items = append(t.Items, domain.OrderItem{
				ID:          ln.ProductID,
				Name:        ln.Name,
				UnitPrice:   ln.Price,
				InstanceKey: s.nextKey(),
				State:       domain.StatePending,
				Destination: dest,
			})
		}
	}
	s.tables[tableID] = t
	s.publish(ctx, domain.EventNewOrder, tableID)
}

// AddCustomProduct appends one ad-hoc item created by staff. Repeat adds of
// the same name on the same table reuse the registered product instead of
// minting a duplicate id. Price validation is the caller's job.
func (s *TableStore) AddCustomProduct(ctx context.Context, tableID, name string, price float64) domain.CustomProduct {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	var prod domain.CustomProduct
	found := false
	for _, cp := range t.CustomProducts {
		if cp.Name == name {
			prod, found = cp, true
			break
		}
	}
	if !found {
		prod = domain.CustomProduct{ID: uuid.NewString(), Name: name, Price: price}
		t.CustomProducts = append(t.CustomProducts, prod)
	}
	t.Items = append(t.Items, domain.OrderItem{
		ID:          prod.ID,
		Name:        prod.Name,
		UnitPrice:   prod.Price,
		InstanceKey: s.nextKey(),
		State:       domain.StatePending,
		Destination: domain.DestBar,
		Custom:      true,
	})
	s.tables[tableID] = t
	s.publish(ctx, domain.EventAddedByStaff, tableID)
	return prod
}

// ConfirmItem sends a pending kitchen item to the kitchen queue. Anything
// else (missing, already past pending, served, bar-destined) is a silent
// no-op: concurrent clients race to confirm and the loser's intent is
// already satisfied.
func (s *TableStore) ConfirmItem(ctx context.Context, tableID string, instanceKey int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	for i := range t.Items {
		it := &t.Items[i]
		if it.InstanceKey != instanceKey {
			continue
		}
		if it.Served || it.State != domain.StatePending || it.Destination != domain.DestKitchen {
			return
		}
		it.State = domain.StateQueuedForKitchen
		s.tables[tableID] = t
		s.publish(ctx, domain.EventOrderConfirmed, tableID)
		return
	}
}

var stateRank = map[domain.ItemState]int{
	domain.StatePending:          0,
	domain.StateQueuedForKitchen: 1,
	domain.StatePreparing:        2,
	domain.StateReady:            3,
}

// UpdateItemState moves a kitchen item forward among queuedForKitchen,
// preparing and ready. Served items and backward moves are silent no-ops.
func (s *TableStore) UpdateItemState(ctx context.Context, tableID string, instanceKey int64, newState domain.ItemState) {
	if newState != domain.StateQueuedForKitchen &&
		newState != domain.StatePreparing &&
		newState != domain.StateReady {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	for i := range t.Items {
		it := &t.Items[i]
		if it.InstanceKey != instanceKey {
			continue
		}
		if it.Served || it.Destination != domain.DestKitchen {
			return
		}
		// pending items leave via ConfirmItem, not here
		if it.State == domain.StatePending {
			return
		}
		if stateRank[newState] <= stateRank[it.State] {
			return
		}
		it.State = newState
		s.tables[tableID] = t
		s.publish(ctx, domain.EventKitchenUpdated, tableID)
		if newState == domain.StateReady {
			s.notifyTable(ctx, tableID, domain.NotifyOrderOnTheWay)
		}
		return
	}
}

// MarkServed is the one transition allowed to jump from any non-served
// state: the waiter decided to serve it. Terminal once set.
func (s *TableStore) MarkServed(ctx context.Context, tableID string, instanceKey int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	for i := range t.Items {
		it := &t.Items[i]
		if it.InstanceKey != instanceKey {
			continue
		}
		if it.Served {
			return
		}
		it.Served = true
		s.tables[tableID] = t
		s.publish(ctx, "", "")
		s.notifyTable(ctx, tableID, domain.NotifyOrderServed)
		return
	}
}

// IncrementItem appends one more pending instance of a product already on
// the table, copying its name and price. Falls back to the custom-product
// registry when every instance was decremented away. No-op for unknown ids.
func (s *TableStore) IncrementItem(ctx context.Context, tableID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	var tmpl *domain.OrderItem
	for i := range t.Items {
		if t.Items[i].ID == productID {
			tmpl = &t.Items[i]
			break
		}
	}
	if tmpl == nil {
		for _, cp := range t.CustomProducts {
			if cp.ID == productID {
				tmpl = &domain.OrderItem{
					ID: cp.ID, Name: cp.Name, UnitPrice: cp.Price,
					Destination: domain.DestBar, Custom: true,
				}
				break
			}
		}
	}
	if tmpl == nil {
		return
	}
	t.Items = append(t.Items, domain.OrderItem{
		ID:          tmpl.ID,
		Name:        tmpl.Name,
		UnitPrice:   tmpl.UnitPrice,
		InstanceKey: s.nextKey(),
		State:       domain.StatePending,
		Destination: tmpl.Destination,
		Custom:      tmpl.Custom,
	})
	s.tables[tableID] = t
	s.publish(ctx, "", "")
}

// DecrementItem removes the first unserved instance of a product. Served
// instances are untouchable here: they are already on the bill.
func (s *TableStore) DecrementItem(ctx context.Context, tableID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	for i := range t.Items {
		if t.Items[i].ID == productID && !t.Items[i].Served {
			t.Items = append(t.Items[:i], t.Items[i+1:]...)
			s.tables[tableID] = t
			s.publish(ctx, "", "")
			return
		}
	}
}

func (s *TableStore) RequestCall(ctx context.Context, tableID string) {
	s.setSignal(ctx, tableID, func(t *domain.TableAggregate) { t.CallRequested = true },
		domain.EventCall, "")
}

func (s *TableStore) AcknowledgeCall(ctx context.Context, tableID string) {
	s.setSignal(ctx, tableID, func(t *domain.TableAggregate) { t.CallRequested = false },
		domain.EventCallAcknowledged, domain.NotifyWaiterComingSoon)
}

func (s *TableStore) RequestBill(ctx context.Context, tableID string) {
	s.setSignal(ctx, tableID, func(t *domain.TableAggregate) { t.BillRequested = true },
		domain.EventBill, "")
}

func (s *TableStore) AcknowledgeBill(ctx context.Context, tableID string) {
	s.setSignal(ctx, tableID, func(t *domain.TableAggregate) { t.BillRequested = false },
		domain.EventBillAcknowledged, domain.NotifyBillComingSoon)
}

func (s *TableStore) setSignal(ctx context.Context, tableID string, mutate func(*domain.TableAggregate), kind domain.EventKind, cue domain.NotifyKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tables[tableID]
	mutate(&t)
	s.tables[tableID] = t
	s.publish(ctx, kind, tableID)
	if cue != "" {
		s.notifyTable(ctx, tableID, cue)
	}
}

// Settle zeroes the table: items, signals and custom products all cleared.
// The key stays in the map so historical table ids remain valid.
func (s *TableStore) Settle(ctx context.Context, tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[tableID] = domain.TableAggregate{}
	s.publish(ctx, domain.EventSettled, tableID)
	s.notifyTable(ctx, tableID, domain.NotifyTableSettled)
}

// ApplySnapshot replaces the whole local map with a remote snapshot. No
// merge, no patching: re-applying the same snapshot is harmless and the
// last snapshot processed wins.
func (s *TableStore) ApplySnapshot(tables domain.Tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = tables.Clone()
}

// Snapshot returns a deep copy of the full map.
func (s *TableStore) Snapshot() domain.Tables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables.Clone()
}

// Table returns a deep copy of one aggregate, synthesized empty if absent.
func (s *TableStore) Table(tableID string) domain.TableAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[tableID].Clone()
}

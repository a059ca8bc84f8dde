package client

import (
	"context"
	"strconv"

	"table-service/internal/common/httpx"
	"table-service/internal/common/logger"
	"table-service/internal/domain"
	"table-service/internal/store"
)

// Role decides which HTTP routes a client exposes. The state machine
// underneath is identical for every role.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleWaiter   Role = "waiter"
	RoleKitchen  Role = "kitchen"
	RoleCashier  Role = "cashier"
)

// SnapshotStore is the durable per-device copy of the last applied snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, deviceID string, tables domain.Tables) error
	Load(ctx context.Context, deviceID string) (domain.Tables, bool, error)
}

// SyncTransport is the snapshot broadcast channel, satisfied by bus.SyncBus.
type SyncTransport interface {
	PublishSync(ctx context.Context, msg domain.SyncMessage) error
	Subscribe(ctx context.Context, handler func(domain.SyncMessage)) error
}

// NotifyTransport is the cue broadcast channel, satisfied by bus.NotifyBus.
type NotifyTransport interface {
	PublishNotify(ctx context.Context, msg domain.NotifyMessage) error
	Subscribe(ctx context.Context, handler func(domain.NotifyMessage)) error
}

// Client is one role's runtime: a local TableStore, subscriptions to both
// buses, and the role HTTP surface. Each client holds its own full copy of
// the table map and reconciles with the others purely by snapshot replace.
type Client struct {
	role      Role
	deviceID  string
	store     *store.TableStore
	syncBus   SyncTransport
	notifyBus NotifyTransport
	snapshots SnapshotStore
	lg        *logger.Logger
}

func New(role Role, deviceID string, syncBus SyncTransport, notifyBus NotifyTransport, snapshots SnapshotStore, lg *logger.Logger) *Client {
	c := &Client{
		role:      role,
		deviceID:  deviceID,
		syncBus:   syncBus,
		notifyBus: notifyBus,
		snapshots: snapshots,
		lg:        lg,
	}
	// Local mutations persist before they fan out; remote snapshots persist
	// in handleSync. Either way the durable copy is the last applied state.
	c.store = store.New(persistingPublisher{c}, notifyBus, lg)
	return c
}

// persistingPublisher saves each locally produced snapshot for this device,
// then broadcasts it. The subscriber skips own echoes, so this is the only
// place own mutations reach the durable copy.
type persistingPublisher struct{ c *Client }

func (p persistingPublisher) PublishSync(ctx context.Context, msg domain.SyncMessage) error {
	if err := p.c.snapshots.Save(ctx, p.c.deviceID, msg.Tables); err != nil {
		p.c.lg.Error("snapshot_save_failed", err, map[string]any{"device_id": p.c.deviceID})
	}
	return p.c.syncBus.PublishSync(ctx, msg)
}

// Run seeds the store from the durable copy, subscribes to both buses and
// serves the role HTTP API until ctx is cancelled.
func (c *Client) Run(ctx context.Context, port int) error {
	c.seed(ctx)

	if err := c.syncBus.Subscribe(ctx, c.handleSync); err != nil {
		return err
	}
	if err := c.notifyBus.Subscribe(ctx, c.handleNotify); err != nil {
		return err
	}

	srv := httpx.New(":"+strconv.Itoa(port), c.routes())
	c.lg.Info("client_started", map[string]any{
		"role": string(c.role), "device_id": c.deviceID, "port": port,
	})
	return srv.Run(ctx)
}

// seed restores the last applied snapshot for this device. A load failure is
// not fatal: the client starts empty and converges on the next broadcast.
func (c *Client) seed(ctx context.Context) {
	tables, ok, err := c.snapshots.Load(ctx, c.deviceID)
	if err != nil {
		c.lg.Error("snapshot_load_failed", err, map[string]any{"device_id": c.deviceID})
		return
	}
	if !ok {
		return
	}
	c.store.ApplySnapshot(tables)
	c.lg.Info("snapshot_restored", map[string]any{
		"device_id": c.deviceID, "tables": len(tables),
	})
}

// handleSync replaces the local map wholesale and persists it. Whichever
// snapshot arrives last becomes this client's truth.
func (c *Client) handleSync(msg domain.SyncMessage) {
	c.store.ApplySnapshot(msg.Tables)
	if err := c.snapshots.Save(context.Background(), c.deviceID, msg.Tables); err != nil {
		c.lg.Error("snapshot_save_failed", err, map[string]any{"device_id": c.deviceID})
	}
	c.lg.Debug("snapshot_applied", map[string]any{
		"event_kind": string(msg.EventKind), "table_id": msg.TableID,
	})
}

// handleNotify surfaces a transient cue. State never changes here; the
// matching state change arrives separately on the sync bus.
func (c *Client) handleNotify(msg domain.NotifyMessage) {
	c.lg.Info("notify_cue", map[string]any{
		"table_id": msg.TableID, "message": string(msg.Message),
	})
}

// Store exposes the table store for the HTTP layer and tests.
func (c *Client) Store() *store.TableStore { return c.store }

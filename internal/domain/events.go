package domain

// EventKind tags a sync snapshot with the mutation that produced it.
// Snapshots from MarkServed/Increment/Decrement carry no tag.
type EventKind string

const (
	EventNewOrder         EventKind = "newOrder"
	EventOrderConfirmed   EventKind = "orderConfirmed"
	EventKitchenUpdated   EventKind = "kitchenUpdated"
	EventCall             EventKind = "call"
	EventCallAcknowledged EventKind = "callAcknowledged"
	EventBill             EventKind = "bill"
	EventBillAcknowledged EventKind = "billAcknowledged"
	EventSettled          EventKind = "settled"
	EventAddedByStaff     EventKind = "addedByStaff"
)

// SyncMessage is the whole-map snapshot broadcast after every mutation.
// Subscribers replace their local map wholesale; they never apply patches.
type SyncMessage struct {
	Tables    Tables    `json:"tables"`
	EventKind EventKind `json:"eventKind,omitempty"`
	TableID   string    `json:"tableId,omitempty"`
}

// NotifyKind is a one-shot cue for transient UI effects (toast, sound).
type NotifyKind string

const (
	NotifyWaiterComingSoon NotifyKind = "waiterComingSoon"
	NotifyOrderOnTheWay    NotifyKind = "orderOnTheWay"
	NotifyOrderServed      NotifyKind = "orderServed"
	NotifyBillComingSoon   NotifyKind = "billComingSoon"
	NotifyTableSettled     NotifyKind = "tableSettled"
)

// NotifyMessage carries no state and requires no acknowledgement. A client
// that is not listening simply misses it.
type NotifyMessage struct {
	TableID string     `json:"tableId"`
	Message NotifyKind `json:"message"`
}

//go:build linux

package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"
)

// dbusNotifier sends notifications via D-Bus.
type dbusNotifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	actions chan Action
}

// New creates a Notifier that sends desktop notifications via D-Bus.
// Returns a no-op notifier if D-Bus is unavailable.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		// D-Bus not available, return no-op notifier (intentional graceful degradation)
		return nopNotifier{}, nil //nolint:nilerr // graceful fallback when D-Bus unavailable
	}

	n := &dbusNotifier{
		conn:    conn,
		obj:     conn.Object(dbusNotifyDest, dbusNotifyPath),
		actions: make(chan Action, 8),
	}
	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface(dbusNotifyInterface),
		dbus.WithMatchMember("ActionInvoked"),
	); err == nil {
		signals := make(chan *dbus.Signal, 16)
		conn.Signal(signals)
		go n.forwardActions(signals)
	}
	return n, nil
}

func (n *dbusNotifier) forwardActions(signals <-chan *dbus.Signal) {
	for sig := range signals {
		a, ok := parseAction(sig)
		if !ok {
			continue
		}
		select {
		case n.actions <- a:
		default:
		}
	}
}

// parseAction decodes an ActionInvoked(id, key) signal.
func parseAction(sig *dbus.Signal) (Action, bool) {
	if sig == nil || sig.Name != dbusNotifyInterface+".ActionInvoked" || len(sig.Body) != 2 {
		return Action{}, false
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return Action{}, false
	}
	key, ok := sig.Body[1].(string)
	if !ok {
		return Action{}, false
	}
	return Action{ID: id, Key: key}, true
}

// notifyArgs builds the arguments of
// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout).
func notifyArgs(notif Notification) []any {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(notif.Urgency)),
		"desktop-entry": dbus.MakeVariant("wavelet"),
	}
	actions := notif.Actions
	if actions == nil {
		actions = []string{}
	}
	return []any{
		"Wavelet",
		notif.ReplacesID,
		notif.Icon,
		notif.Title,
		notif.Body,
		actions,
		hints,
		notif.Timeout,
	}
}

// Notify sends a notification via D-Bus.
func (n *dbusNotifier) Notify(notif Notification) (uint32, error) {
	call := n.obj.Call(dbusNotifyInterface+".Notify", 0, notifyArgs(notif)...)
	if call.Err != nil {
		return 0, call.Err
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Close closes a notification by ID.
func (n *dbusNotifier) Close(id uint32) error {
	call := n.obj.Call(dbusNotifyInterface+".CloseNotification", 0, id)
	return call.Err
}

// Actions delivers ActionInvoked signals.
func (n *dbusNotifier) Actions() <-chan Action {
	return n.actions
}

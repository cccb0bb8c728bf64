// Package tray shows the input mode as a StatusNotifierItem on the session
// bus. A left click on the icon toggles the mode.
package tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"wlchewing/internal/ime"
)

const (
	ItemInterface = "org.freedesktop.StatusNotifierItem"
	ItemPath      = dbus.ObjectPath("/StatusNotifierItem")

	IconForwarding  = "wlchewing-eng"
	IconComposition = "wlchewing-bopomofo"

	title = "Wayland Chinese zhuyin input method with libchewing"
)

// watchers are tried in order when registering the item.
var watchers = []string{
	"org.freedesktop.StatusNotifierWatcher",
	"org.kde.StatusNotifierWatcher",
}

// ErrNameTaken is returned when another process owns the item's bus name.
var ErrNameTaken = errors.New("tray: bus name already taken")

// IconName returns the icon for a mode.
func IconName(forwarding bool) string {
	if forwarding {
		return IconForwarding
	}
	return IconComposition
}

// ServiceName is the well-known name of the item owned by process pid.
func ServiceName(pid int) string {
	return fmt.Sprintf("%s-%d-1", ItemInterface, pid)
}

// Tray implements ime.Indicator.
type Tray struct {
	events chan<- ime.Event
	log    *slog.Logger

	mu         sync.Mutex
	conn       *dbus.Conn
	props      *prop.Properties
	forwarding bool
}

var _ ime.Indicator = (*Tray)(nil)

// New returns a tray that posts toggle requests to events. It does not
// touch the bus until Start.
func New(events chan<- ime.Event, log *slog.Logger) *Tray {
	if log == nil {
		log = slog.Default()
	}
	return &Tray{events: events, log: log}
}

// Start exports the item on the session bus and registers it with the
// status notifier watcher.
func (t *Tray) Start(ctx context.Context) error {
	conn, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	if err := t.export(conn); err != nil {
		conn.Close()
		return err
	}

	name := ServiceName(os.Getpid())
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return ErrNameTaken
	}

	if err := register(ctx, conn, name); err != nil {
		conn.Close()
		return err
	}
	t.log.Info("tray item registered", "name", name)
	return nil
}

// itemProps is the read-only property set of the item. Only IconName
// changes, and hosts watching PropertiesChanged are told when it does.
func itemProps(forwarding bool) prop.Map {
	ro := func(v any) *prop.Prop {
		return &prop.Prop{Value: v, Writable: false, Emit: prop.EmitFalse}
	}
	return prop.Map{
		ItemInterface: {
			"Category": ro("SystemServices"),
			"Id":       ro("wlchewing"),
			"Title":    ro(title),
			"Status":   ro("Active"),
			"WindowId": ro(uint32(0)),
			"IconName": {Value: IconName(forwarding), Writable: false, Emit: prop.EmitTrue},
		},
	}
}

func (t *Tray) export(conn *dbus.Conn) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	props, err := prop.Export(conn, ItemPath, itemProps(t.forwarding))
	if err != nil {
		return fmt.Errorf("failed to export properties: %w", err)
	}

	item := &item{tray: t}
	if err := conn.Export(item, ItemPath, ItemInterface); err != nil {
		return fmt.Errorf("failed to export item: %w", err)
	}
	node := &introspect.Node{
		Name: string(ItemPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       ItemInterface,
				Methods:    introspect.Methods(item),
				Properties: props.Introspection(ItemInterface),
				Signals:    []introspect.Signal{{Name: "NewIcon"}},
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), ItemPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspection: %w", err)
	}

	t.conn, t.props = conn, props
	return nil
}

func register(ctx context.Context, conn *dbus.Conn, name string) error {
	var errs []error
	for _, watcher := range watchers {
		obj := conn.Object(watcher, "/StatusNotifierWatcher")
		call := obj.CallWithContext(ctx, watcher+".RegisterStatusNotifierItem", 0, name)
		if call.Err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", watcher, call.Err))
	}
	return fmt.Errorf("failed to register tray item: %w", errors.Join(errs...))
}

// SetForwarding updates the icon. Before Start it only records the mode.
func (t *Tray) SetForwarding(forwarding bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.forwarding = forwarding
	if t.props == nil {
		return
	}
	t.props.SetMust(ItemInterface, "IconName", IconName(forwarding))
	if err := t.conn.Emit(ItemPath, ItemInterface+".NewIcon"); err != nil {
		t.log.Warn("failed to emit NewIcon", "error", err)
	}
}

// Forwarding returns the mode last shown.
func (t *Tray) Forwarding() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forwarding
}

// requestToggle asks the session loop for a mode switch. Clicks arriving
// while the loop is backed up are dropped.
func (t *Tray) requestToggle() {
	select {
	case t.events <- ime.ToggleEvent{}:
	default:
		t.log.Warn("event queue full, toggle dropped")
	}
}

// Close releases the bus connection.
func (t *Tray) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn, t.props = nil, nil
	return err
}

// item carries the exported methods so Tray's own methods stay off the bus.
type item struct {
	tray *Tray
}

func (i *item) Activate(x, y int32) *dbus.Error {
	i.tray.requestToggle()
	return nil
}

func (i *item) SecondaryActivate(x, y int32) *dbus.Error {
	return nil
}

func (i *item) ContextMenu(x, y int32) *dbus.Error {
	return nil
}

func (i *item) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}

package securedisplay

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/godbus/dbus/v5"
)

// D-Bus defaults for the display service.
const (
	DefaultServiceName = "org.mirrord.WindowManager"
	dumpMethodSuffix   = ".Dump"
)

// DBusLocator resolves display services on a D-Bus connection. A service
// is addressed by its well-known bus name; its object path is the name
// with dots replaced by slashes. Dump calls a method taking the write end
// of the pipe as a Unix fd and the dump arguments as a string array.
type DBusLocator struct {
	connect func() (*dbus.Conn, error)
	method  string
}

// NewDBusLocator creates a locator on the shared system bus. An empty
// method selects "<bus name>.Dump".
func NewDBusLocator(method string) *DBusLocator {
	return &DBusLocator{connect: dbus.SystemBus, method: method}
}

// Lookup verifies that name is owned on the bus and returns its endpoint.
func (l *DBusLocator) Lookup(ctx context.Context, name string) (Service, error) {
	if name == "" {
		return nil, fmt.Errorf("empty service name")
	}

	conn, err := l.connect()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	var owned bool
	call := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, name)
	if err := call.Store(&owned); err != nil {
		return nil, fmt.Errorf("query owner of %s: %w", name, err)
	}
	if !owned {
		return nil, fmt.Errorf("bus name %s has no owner", name)
	}

	method := l.method
	if method == "" {
		method = name + dumpMethodSuffix
	}
	return &dbusService{
		obj:    conn.Object(name, objectPathFor(name)),
		method: method,
	}, nil
}

// objectPathFor maps a bus name such as org.mirrord.WindowManager to
// /org/mirrord/WindowManager.
func objectPathFor(name string) dbus.ObjectPath {
	return dbus.ObjectPath("/" + strings.ReplaceAll(name, ".", "/"))
}

type dbusService struct {
	obj    dbus.BusObject
	method string
}

func (s *dbusService) Dump(ctx context.Context, w *os.File, args []string) error {
	call := s.obj.CallWithContext(ctx, s.method, 0, dbus.UnixFD(w.Fd()), args)
	if call.Err != nil {
		return fmt.Errorf("call %s: %w", s.method, call.Err)
	}
	return nil
}

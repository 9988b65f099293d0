//go:build linux || darwin

package udp

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// controlForOption returns a net.ListenConfig.Control callback that sets
// both SO_BROADCAST and SO_REUSEADDR when option == Broadcast, via
// golang.org/x/sys/unix, since the standard net package exposes neither
// socket option directly. NewSender and NewReceiver both use it, so a
// broadcast socket of either kind gets both options.
func controlForOption(option Option) func(network, address string, c syscall.RawConn) error {
	if option != Broadcast {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1); e != nil {
				sockErr = e
				return
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}

// rcvBufControl sets SO_RCVBUF to size on the socket being configured.
func rcvBufControl(size int) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, size)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}

// combineControls chains two ListenConfig.Control callbacks, running b only
// if a succeeds.
func combineControls(a, b func(network, address string, c syscall.RawConn) error) func(network, address string, c syscall.RawConn) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(network, address string, c syscall.RawConn) error {
		if err := a(network, address, c); err != nil {
			return err
		}
		return b(network, address, c)
	}
}

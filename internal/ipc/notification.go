// Package ipc implements the fixed-width notification protocol that
// coordinates the fast-reload background thread with the primary
// worker, and the worker command tube used to fan distributed
// control commands out to every other worker.
package ipc

import (
	"encoding/binary"
	"fmt"
)

// Notification is one word of the commpair protocol.
type Notification uint32

const (
	NotifyNone Notification = iota
	NotifyDone
	NotifyDoneError
	NotifyExit
	NotifyExited
	NotifyPrintout
	NotifyReloadStop
	NotifyReloadAck
	NotifyReloadNopausePoll
	NotifyReloadStart
)

func (n Notification) String() string {
	switch n {
	case NotifyNone:
		return "none"
	case NotifyDone:
		return "done"
	case NotifyDoneError:
		return "done_error"
	case NotifyExit:
		return "exit"
	case NotifyExited:
		return "exited"
	case NotifyPrintout:
		return "printout"
	case NotifyReloadStop:
		return "reload_stop"
	case NotifyReloadAck:
		return "reload_ack"
	case NotifyReloadNopausePoll:
		return "reload_nopause_poll"
	case NotifyReloadStart:
		return "reload_start"
	default:
		return fmt.Sprintf("notification(%d)", uint32(n))
	}
}

// wordSize is the width of one notification word on the wire. The
// protocol note that the two endpoints are always the same process
// lets us skip byte-order negotiation; host order, fixed width, is
// sufficient and matches what a real socketpair delivers.
const wordSize = 4

// encode writes n as a 4-byte host-order word.
func encode(n Notification) [wordSize]byte {
	var buf [wordSize]byte
	binary.NativeEndian.PutUint32(buf[:], uint32(n))
	return buf
}

// decode reads a 4-byte host-order word back into a Notification.
func decode(buf [wordSize]byte) Notification {
	return Notification(binary.NativeEndian.Uint32(buf[:]))
}

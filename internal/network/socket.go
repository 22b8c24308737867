package network

import (
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn the listener needs, so tests can
// feed datagrams without a real socket.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory creates UDP sockets.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// SystemSocketFactory opens real sockets with net.ListenUDP.
type SystemSocketFactory struct{}

// ListenUDP creates a new UDP socket.
func (SystemSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

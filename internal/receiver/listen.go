package receiver

import (
	"fmt"
	"net"

	"sdrhost/internal/flog"
)

// Listen binds a UDP socket at laddr. If group is non-nil the socket joins
// that IPv4 multicast group on the given interface (spec §6 Multicast);
// the group is left automatically when the returned net.UDPConn is
// closed, mirroring the teacher's "join at construction, leave on drop"
// discipline for its own connection lifecycles.
func Listen(laddr *net.UDPAddr, group net.IP, iface *net.Interface) (*net.UDPConn, error) {
	if group == nil {
		conn, err := net.ListenUDP("udp", laddr)
		if err != nil {
			return nil, fmt.Errorf("receiver: bind %s: %w", laddr, err)
		}
		return conn, nil
	}

	gaddr := &net.UDPAddr{IP: group, Port: laddr.Port}
	conn, err := net.ListenMulticastUDP("udp", iface, gaddr)
	if err != nil {
		return nil, fmt.Errorf("receiver: join multicast %s: %w", group, err)
	}
	flog.Infof("receiver: joined multicast group %s on %s", group, laddr)
	return conn, nil
}

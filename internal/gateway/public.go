package gateway

import (
	"net"
	"net/http"

	"snake-arena-server/internal/room"
)

// publicRoomsSnapshot recomputes the §4.6 public-room index by asking
// every room whether it's currently eligible, the "single recompute
// and publish helper" the spec's redesign notes call for instead of
// many ad-hoc mutation sites keeping an index in sync.
func (h *Hub) publicRoomsSnapshot() []room.PublicRoomView {
	h.mu.RLock()
	rooms := make([]*room.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	out := make([]room.PublicRoomView, 0, len(rooms))
	for _, r := range rooms {
		if r.IsPublicEligible() {
			out = append(out, r.PublicInfo())
		}
	}
	return out
}

// publishPublicRooms recomputes the public index and fans the result
// out to every connected client (§4.6: "emit publicRoomsUpdated to all
// connections").
func (h *Hub) publishPublicRooms() {
	listing := h.publicRoomsSnapshot()
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	payload := struct {
		Rooms []room.PublicRoomView `json:"rooms"`
	}{listing}
	for _, c := range conns {
		_ = c.Send("publicRoomsUpdated", payload)
	}
}

// ServerInfoHandler implements §6's GET /api/server-info support
// endpoint: the listen port plus every non-internal IPv4 interface
// address, so a client on the LAN can discover how to reach the
// server.
func ServerInfoHandler(listenAddr string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addrs := localIPv4Addresses()
		urls := make([]string, 0, len(addrs))
		for _, a := range addrs {
			urls = append(urls, "http://"+a+listenAddr)
		}
		writeJSON(w, struct {
			Port            string   `json:"port"`
			Addresses       []string `json:"addresses"`
			ConnectionURLs  []string `json:"connectionUrls"`
		}{listenAddr, addrs, urls})
	}
}

func localIPv4Addresses() []string {
	var out []string
	ifaces, err := net.InterfaceAddrs()
	if err != nil {
		return out
	}
	for _, addr := range ifaces {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		v4 := ipNet.IP.To4()
		if v4 == nil {
			continue
		}
		out = append(out, v4.String())
	}
	return out
}

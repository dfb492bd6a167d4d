// Command snake-arena-server hosts the multi-room snake arena: an
// authoritative, room-based real-time game server (§1-2). Grounded on
// the teacher's main.go (sonpython-slether): a gorilla/websocket
// upgrade handler, a static file server, and an IP-based connection
// rate limiter, generalized from one global World+GameLoop to the
// gateway's many independently-lifecycled rooms.
package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"snake-arena-server/internal/config"
	"snake-arena-server/internal/gateway"
)

// ipRateLimiter throttles reconnect storms per source IP, exactly the
// teacher's ipRateLimiter (main.go) reused verbatim for this server's
// own connection-flood guard.
type ipRateLimiter struct {
	mu    sync.Mutex
	times map[string]time.Time
}

func newIPRateLimiter() *ipRateLimiter {
	rl := &ipRateLimiter{times: make(map[string]time.Time)}
	go func() {
		for range time.Tick(60 * time.Second) {
			rl.mu.Lock()
			cutoff := time.Now().Add(-config.IPCooldownSec * time.Second)
			for ip, t := range rl.times {
				if t.Before(cutoff) {
					delete(rl.times, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *ipRateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if last, ok := rl.times[ip]; ok {
		if time.Since(last) < config.IPCooldownSec*time.Second {
			return false
		}
	}
	rl.times[ip] = time.Now()
	return true
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	ReadBufferSize:    1024,
	WriteBufferSize:   4096,
	EnableCompression: true,
}

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	hub := gateway.NewHub(cfg.Features)

	stopSweep := make(chan struct{})
	go hub.StartSessionSweep(stopSweep)

	rateLimiter := newIPRateLimiter()

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade error: %v", err)
			return
		}

		if hub.ConnectionCount() >= config.MaxConnections {
			closeWithError(ws, "Server full. Please try again later.")
			return
		}
		if !rateLimiter.allow(ip) {
			closeWithError(ws, "Too many connections. Please wait a moment.")
			return
		}

		ws.EnableWriteCompression(true)
		conn := gateway.NewConn(ws)
		log.Printf("connection opened: %s", conn.ID)
		hub.Accept(conn)
		log.Printf("connection closed: %s", conn.ID)
	})

	mux.HandleFunc("/api/server-info", gateway.ServerInfoHandler(cfg.ListenAddr()))

	fs := http.FileServer(http.Dir(cfg.StaticDir))
	mux.Handle("/", fs)

	log.Printf("server listening on %s (chat=%v powerups=%v accessibility=%v)",
		cfg.ListenAddr(), cfg.Features.Chat, cfg.Features.Powerups, cfg.Features.Accessibility)
	if err := http.ListenAndServe(cfg.ListenAddr(), mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// closeWithError sends an error envelope on a just-upgraded socket that
// is being refused, then closes it; the teacher's sendErrorAndClose
// (main.go) generalized to the
// spec's {event,payload} envelope shape.
func closeWithError(ws *websocket.Conn, message string) {
	conn := gateway.NewConn(ws)
	_ = conn.Send("error", struct {
		Message string `json:"message"`
	}{message})
	conn.Close()
}

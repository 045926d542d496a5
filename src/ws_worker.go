package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ryansname/visimos/src/affect"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 1024
	wsSendBuffer     = 32
)

// wsEnvelope is every message the hub sends.
type wsEnvelope struct {
	Type      string              `json:"type"` // frame or utterance
	Frame     *affect.RenderFrame `json:"frame,omitempty"`
	View      *affect.Viewport    `json:"view,omitempty"` // engine pixels the frame is measured in
	Utterance *Utterance          `json:"utterance,omitempty"`
}

// pointerMessage is what browser clients send. Coordinates are in the
// client's own drawable pixels, W and H give its size.
type pointerMessage struct {
	Type string  `json:"type"` // down, move, up, cancel or reset
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

type wsClient struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	tracker affect.Tracker
	start   time.Time
}

// pointer applies one client message to the client's gesture tracker.
func (c *wsClient) pointer(m pointerMessage, nowMs float64) (affect.InteractionEvent, bool, error) {
	p := affect.Pointer{X: m.X, Y: m.Y, View: affect.Viewport{W: m.W, H: m.H}}
	switch m.Type {
	case "down":
		return c.tracker.Down(p, nowMs), true, nil
	case "move":
		ev, ok := c.tracker.Move(p)
		return ev, ok, nil
	case "up":
		ev, ok := c.tracker.Up(p, nowMs)
		return ev, ok, nil
	case "cancel":
		ev, ok := c.tracker.Cancel()
		return ev, ok, nil
	default:
		return affect.InteractionEvent{}, false, fmt.Errorf("unknown message type %q", m.Type)
	}
}

// wsHub serves the websocket endpoint and fans frames out to every
// connected browser.
type wsHub struct {
	orb      orbControl
	vp       *viewportHolder
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newWSHub(orb orbControl, vp *viewportHolder, logger zerolog.Logger) *wsHub {
	return &wsHub{
		orb: orb,
		vp:  vp,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Pointer input only; the endpoint binds to localhost by default
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*wsClient]struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *wsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *wsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &wsClient{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, wsSendBuffer),
		start: time.Now(),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	wsClients.Set(float64(n))
	h.logger.Info().Str("client", c.id).Int("clients", n).Msg("websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

func (h *wsHub) unregister(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	wsClients.Set(float64(n))
	h.logger.Info().Str("client", c.id).Int("clients", n).Msg("websocket client disconnected")
}

// broadcast queues v for every client. Clients with a full buffer miss it.
func (h *wsHub) broadcast(v wsEnvelope) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error().Err(err).Msg("marshal websocket message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			if v.Type == "frame" {
				framesDropped.WithLabelValues("ws_client").Inc()
			}
		}
	}
}

func (h *wsHub) closeAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

func (h *wsHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *wsHub) readPump(c *wsClient) {
	defer h.unregister(c)
	defer func() {
		// A client that leaves mid-gesture must not hold the orb
		if ev, ok := c.tracker.Cancel(); ok {
			h.orb.Interact("ws", ev)
		}
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var m pointerMessage
		if err := c.conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			return
		}

		if m.Type == "reset" {
			h.orb.ResetMemory()
			continue
		}
		ev, ok, err := c.pointer(m, float64(time.Since(c.start).Milliseconds()))
		if err != nil {
			h.logger.Debug().Err(err).Str("client", c.id).Msg("ignoring websocket message")
			continue
		}
		if ok {
			h.orb.Interact("ws", ev)
		}
	}
}

// run forwards engine output to connected clients until ctx is done.
func (h *wsHub) run(ctx context.Context, frames <-chan affect.RenderFrame, utterances <-chan Utterance) {
	for {
		select {
		case f := <-frames:
			view := h.vp.Get()
			h.broadcast(wsEnvelope{Type: "frame", Frame: &f, View: &view})
		case u := <-utterances:
			h.broadcast(wsEnvelope{Type: "utterance", Utterance: &u})
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func newWebMux(hub *wsHub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": hub.ClientCount()})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(orbPage))
	})
	return mux
}

// webWorker serves the browser view, the websocket and metrics.
func webWorker(
	ctx context.Context,
	ln net.Listener,
	hub *wsHub,
	frames <-chan affect.RenderFrame,
	utterances <-chan Utterance,
	logger zerolog.Logger,
) {
	server := &http.Server{
		Handler:           newWebMux(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go hub.run(ctx, frames, utterances)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("web server listening")
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("web server stopped")
	}
}

const orbPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>visimos</title>
<style>html,body{margin:0;height:100%;background:#0a0a14;overflow:hidden}canvas{display:block;touch-action:none}</style>
</head><body><canvas id="c"></canvas><script>
const c=document.getElementById('c'),ctx=c.getContext('2d');
function fit(){c.width=innerWidth;c.height=innerHeight}fit();addEventListener('resize',fit);
const ws=new WebSocket((location.protocol==='https:'?'wss://':'ws://')+location.host+'/ws');
function send(type,e){ws.readyState===1&&ws.send(JSON.stringify({type,x:e.clientX,y:e.clientY,w:c.width,h:c.height}))}
c.addEventListener('pointerdown',e=>send('down',e));
c.addEventListener('pointermove',e=>e.buttons&&send('move',e));
c.addEventListener('pointerup',e=>send('up',e));
c.addEventListener('pointercancel',e=>send('cancel',e));
ws.onmessage=m=>{const d=JSON.parse(m.data);
 if(d.type==='utterance'&&'speechSynthesis'in window){const u=new SpeechSynthesisUtterance(d.utterance.text);u.rate=0.95;u.pitch=1.05;speechSynthesis.speak(u);return}
 if(d.type!=='frame')return;const f=d.frame,w=c.width,h=c.height,sx=w/d.view.w,sy=h/d.view.h,s=Math.min(sx,sy);
 const bg=ctx.createLinearGradient(0,0,w,h);bg.addColorStop(0,'rgb('+f.backgroundTone+',10,30)');bg.addColorStop(1,'rgb(10,10,20)');
 ctx.fillStyle=bg;ctx.fillRect(0,0,w,h);const g=f.glowColor,r=f.rimColor,x=f.center.x*sx,y=f.center.y*sy,R=f.radius*s;
 if(R>0){const gr=ctx.createRadialGradient(x,y,R*0.2,x,y,R);
 gr.addColorStop(0,'rgba('+g.r+','+g.g+','+g.b+',1)');gr.addColorStop(1,'rgba('+g.r+','+g.g+','+g.b+',0)');
 ctx.fillStyle=gr;ctx.beginPath();ctx.arc(x,y,R,0,Math.PI*2);ctx.fill()}
 ctx.beginPath();ctx.strokeStyle='rgba('+r.r+','+r.g+','+r.b+',0.95)';ctx.lineWidth=Math.max(3,w*0.01);ctx.arc(x,y,f.rimRadius*s,0,Math.PI*2);ctx.stroke()};
</script></body></html>`

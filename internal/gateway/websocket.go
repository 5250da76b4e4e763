package gateway

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// WebSocket receives frames over a persistent websocket.
type WebSocket struct {
	url   string
	token string
}

// NewWebSocket creates a websocket transport for url (ws:// or wss://).
func NewWebSocket(url, token string) *WebSocket {
	return &WebSocket{url: url, token: token}
}

func (t *WebSocket) Name() string { return "websocket" }

func (t *WebSocket) Open(ctx context.Context) (Stream, error) {
	d := ws.Dialer{}
	if t.token != "" {
		d.Header = ws.HandshakeHeaderHTTP(http.Header{
			"Authorization": []string{"Bearer " + t.token},
		})
	}
	conn, br, _, err := d.Dial(ctx, t.url)
	if err != nil {
		return nil, fmt.Errorf("websocket: dial %s: %w", t.url, err)
	}

	var r io.Reader = conn
	if br != nil {
		// br holds frames that arrived with the handshake response and
		// reads through to conn once drained.
		r = br
	}
	return &wsStream{conn: conn, rw: readWriter{Reader: r, Writer: conn}}, nil
}

type readWriter struct {
	io.Reader
	io.Writer
}

type wsStream struct {
	conn net.Conn
	rw   readWriter
}

func (s *wsStream) Recv(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { s.conn.Close() })
	defer stop()

	for {
		data, op, err := wsutil.ReadServerData(s.rw)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("websocket: read: %w", err)
		}
		if op == ws.OpText || op == ws.OpBinary {
			return data, nil
		}
	}
}

func (s *wsStream) Close() error {
	_ = wsutil.WriteClientMessage(s.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	return s.conn.Close()
}

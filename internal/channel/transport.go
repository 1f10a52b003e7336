// internal/channel/transport.go
package channel

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
)

// Transport is the minimal connection surface the session needs. The
// production implementation wraps a websocket; tests substitute an in-memory
// fake.
type Transport interface {
	WriteMessage(data []byte) error
	ReadMessage() ([]byte, error)
	Close() error
}

type wsTransport struct {
	conn *websocket.Conn
}

// DialTransport opens a websocket connection to the relay.
func DialTransport(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) WriteMessage(data []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

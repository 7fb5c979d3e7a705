package ws

import (
	"context"
	"fmt"

	"github.com/BaSui01/seriesflow/transport"
	"github.com/BaSui01/seriesflow/types"
	"github.com/coder/websocket"
)

func read(ctx context.Context, conn *websocket.Conn) (transport.Message, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return transport.Message{}, fmt.Errorf("websocket read: %w", err)
	}
	return transport.Decode(data)
}

func write(ctx context.Context, conn *websocket.Conn, m transport.Message) error {
	data, err := transport.Encode(m)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func errUnexpected(k transport.Kind) error {
	return types.NewProtocolError("unexpected message %q", k)
}

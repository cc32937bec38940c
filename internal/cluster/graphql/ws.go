package graphql

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/docktail/fleet/internal/cluster/subscription"
	"github.com/docktail/fleet/internal/shared/rpcproto"
)

// upgrader allows any origin. corsMiddleware also runs on the HTTP upgrade
// request, but it only sets CORS response headers; it does not reject
// requests from origins outside the configured list.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeConn serializes writes, since a subscription's pump and the
// connection's read loop both write to it concurrently.
type safeConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

type wsMessage struct {
	Type    string                 `json:"type"`
	ID      string                 `json:"id,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RegisterSubscriptionRoute wires a graphql-ws-flavored websocket endpoint:
// clients send {type:"subscribe", id, payload:{query, variables}}, receive a
// stream of {type:"next", id, payload:{data}} frames, and a final
// {type:"complete", id} when the source stream ends or they send
// {type:"stop", id}.
func RegisterSubscriptionRoute(r *gin.Engine, resolver *Resolver, sv *subscription.Supervisor) {
	r.GET("/graphql/ws", func(c *gin.Context) {
		raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		conn := &safeConn{conn: raw}
		defer raw.Close()

		active := make(map[string]*subscription.Subscription)
		defer func() {
			for _, sub := range active {
				sub.Cancel()
			}
		}()

		for {
			var msg wsMessage
			if err := raw.ReadJSON(&msg); err != nil {
				return
			}

			switch msg.Type {
			case "subscribe", "start":
				sub, err := startLogsSubscription(c.Request.Context(), resolver, sv, msg.Payload)
				if err != nil {
					conn.WriteJSON(wsMessage{Type: "error", ID: msg.ID, Payload: map[string]interface{}{"message": err.Error()}})
					continue
				}
				active[msg.ID] = sub
				go pumpToClient(conn, msg.ID, sub)

			case "stop", "complete":
				if sub, ok := active[msg.ID]; ok {
					sub.Cancel()
					delete(active, msg.ID)
				}
			}
		}
	})
}

func startLogsSubscription(ctx context.Context, resolver *Resolver, sv *subscription.Supervisor, payload map[string]interface{}) (*subscription.Subscription, error) {
	variables, _ := payload["variables"].(map[string]interface{})
	agentID, _ := variables["agentId"].(string)
	containerID, _ := variables["containerId"].(string)

	client, ok := resolver.Pool.Client(agentID)
	if !ok {
		return nil, errAgentNotInPool(agentID)
	}

	stream, err := client.StreamLogs(ctx, &rpcproto.StreamLogsRequest{ContainerID: containerID, Follow: true})
	if err != nil {
		return nil, err
	}

	src := func() (interface{}, int, error) {
		frame, err := stream.Recv()
		if err != nil {
			return nil, 0, err
		}
		line := ""
		if frame.Entry.Parsed.Message != nil {
			line = *frame.Entry.Parsed.Message
		}
		size := len(line)
		return logFrameJSON{
			Line:      line,
			Timestamp: strconv.FormatInt(frame.Entry.TimestampNanos, 10),
			Stream:    frame.Entry.Stream.String(),
			Sequence:  frame.Entry.Sequence,
		}, size, nil
	}

	return sv.Subscribe(ctx, agentID, src), nil
}

type logFrameJSON struct {
	Line      string `json:"line"`
	Timestamp string `json:"timestamp"`
	Stream    string `json:"stream"`
	Sequence  uint64 `json:"sequence"`
}

func pumpToClient(conn *safeConn, id string, sub *subscription.Subscription) {
	for frame := range sub.Frames() {
		if frame.Err != nil {
			conn.WriteJSON(wsMessage{Type: "error", ID: id, Payload: map[string]interface{}{"message": frame.Err.Error()}})
			break
		}
		conn.WriteJSON(wsMessage{Type: "next", ID: id, Payload: map[string]interface{}{"data": map[string]interface{}{"logs": frame.Payload}}})
	}
	conn.WriteJSON(wsMessage{Type: "complete", ID: id})
}

type agentNotInPoolError struct{ agentID string }

func (e agentNotInPoolError) Error() string { return "agent not in pool: " + e.agentID }

func errAgentNotInPool(agentID string) error { return agentNotInPoolError{agentID: agentID} }

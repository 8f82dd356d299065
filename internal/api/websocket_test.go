package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"showdown/internal/api"
	"showdown/internal/game"
)

func startHub(t *testing.T, engine api.EngineInterface, cfg api.HubConfig) (*api.WebSocketHub, string) {
	t.Helper()
	hub := api.NewWebSocketHub(engine, cfg)
	go hub.Run()
	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Stop()
		ts.Close()
	})
	return hub, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// readUntil reads JSON frames until one with the given event arrives.
func readUntil(t *testing.T, conn *websocket.Conn, event string) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", event)
		var f frame
		require.NoError(t, json.Unmarshal(data, &f))
		if f.Event == event {
			return f
		}
	}
}

func TestWebSocketHelloAndSnapshot(t *testing.T) {
	e := startedEngine(t)
	_, url := startHub(t, e, api.HubConfig{TickRate: 30})
	conn := dial(t, url)

	hello := readUntil(t, conn, "hello")
	var h map[string]interface{}
	require.NoError(t, json.Unmarshal(hello.Data, &h))
	assert.Equal(t, "json", h["format"])
	assert.Equal(t, true, h["control"])
	assert.EqualValues(t, 30, h["tickRate"])

	snap := readUntil(t, conn, "snapshot")
	var s map[string]interface{}
	require.NoError(t, json.Unmarshal(snap.Data, &s))
	assert.Equal(t, e.GetSnapshot().MatchID, s["matchId"])
}

func TestWebSocketInput(t *testing.T) {
	e := startedEngine(t)
	_, url := startHub(t, e, api.HubConfig{})
	conn := dial(t, url)
	readUntil(t, conn, "hello")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"input","input":{"left":true,"aimX":5}}`)))

	assert.Eventually(t, func() bool {
		inputs := e.Inputs()
		return len(inputs) == 1 && inputs[0].Left && inputs[0].AimX == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketInputNeedsToken(t *testing.T) {
	e := startedEngine(t)
	_, url := startHub(t, e, api.HubConfig{ControlToken: "s3cret"})

	viewer := dial(t, url)
	hello := readUntil(t, viewer, "hello")
	assert.Contains(t, string(hello.Data), `"control":false`)

	require.NoError(t, viewer.WriteMessage(websocket.TextMessage, []byte(`{"type":"input","input":{"up":true}}`)))
	readUntil(t, viewer, "error")
	assert.Empty(t, e.Inputs())

	controller := dial(t, url+"?token=s3cret")
	hello = readUntil(t, controller, "hello")
	assert.Contains(t, string(hello.Data), `"control":true`)

	require.NoError(t, controller.WriteMessage(websocket.TextMessage, []byte(`{"type":"input","input":{"up":true}}`)))
	assert.Eventually(t, func() bool { return len(e.Inputs()) == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketHeartbeat(t *testing.T) {
	_, url := startHub(t, startedEngine(t), api.HubConfig{})
	conn := dial(t, url)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat","sentAt":1234}`)))
	f := readUntil(t, conn, "heartbeat")

	var hb map[string]interface{}
	require.NoError(t, json.Unmarshal(f.Data, &hb))
	assert.EqualValues(t, 1234, hb["clientTime"])
	assert.NotZero(t, hb["serverTime"])
}

func TestWebSocketMsgpack(t *testing.T) {
	e := startedEngine(t)
	_, url := startHub(t, e, api.HubConfig{})
	conn := dial(t, url+"?format=msgpack")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)

	var hello map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(data, &hello))
	assert.Equal(t, "hello", hello["event"])

	_, data, err = conn.ReadMessage()
	require.NoError(t, err)
	var snap map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(data, &snap))
	assert.Equal(t, "snapshot", snap["event"])
	body, ok := snap["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, e.GetSnapshot().MatchID, body["matchId"], "msgpack frames use json field names")

	input, err := msgpack.Marshal(map[string]interface{}{
		"type":  "input",
		"input": map[string]interface{}{"fire": true},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, input))

	assert.Eventually(t, func() bool {
		inputs := e.Inputs()
		return len(inputs) == 1 && inputs[0].Fire
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketPublishEvents(t *testing.T) {
	hub, url := startHub(t, startedEngine(t), api.HubConfig{})
	conn := dial(t, url)
	readUntil(t, conn, "hello")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.PublishEvents([]game.Event{
		{Type: game.EventTick, Sequence: 8},
		{Type: game.EventEliminated, Sequence: 9, EntityID: "bot-1"},
	})

	f := readUntil(t, conn, "events")
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal(f.Data, &events))
	require.Len(t, events, 1, "tick markers are filtered")
	assert.Equal(t, "eliminated", events[0]["type"])
}

func TestWebSocketBroadcastLoop(t *testing.T) {
	e := startedEngine(t)
	hub, url := startHub(t, e, api.HubConfig{BroadcastInterval: 5 * time.Millisecond})
	hub.StartBroadcastLoop()

	conn := dial(t, url)
	readUntil(t, conn, "snapshot") // initial
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	e.Step(time.Second / 30)
	for {
		// the loop may repeat the greeting snapshot once before the new tick
		f := readUntil(t, conn, "snapshot")
		var s map[string]interface{}
		require.NoError(t, json.Unmarshal(f.Data, &s))
		if s["tick"] == float64(1) {
			break
		}
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, url := startHub(t, startedEngine(t), api.HubConfig{CORSOrigins: []string{"https://arena.example"}})

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://arena.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestWebSocketStopDisconnects(t *testing.T) {
	hub, url := startHub(t, startedEngine(t), api.HubConfig{})
	conn := dial(t, url)
	readUntil(t, conn, "hello")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, hub.ClientCount())
}

func TestEncodeFormats(t *testing.T) {
	snap := &game.Snapshot{MatchID: "m-1", Tick: 7}

	j, err := api.Encode(api.FormatJSON, "snapshot", snap)
	require.NoError(t, err)
	assert.Contains(t, string(j), `"matchId":"m-1"`)

	m, err := api.Encode(api.FormatMsgpack, "snapshot", snap)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(m, &out))
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "m-1", data["matchId"])
	assert.EqualValues(t, 7, data["tick"])

	assert.Equal(t, api.FormatMsgpack, api.ParseFormat("msgpack"))
	assert.Equal(t, api.FormatJSON, api.ParseFormat(""))
}

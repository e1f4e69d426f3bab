package api

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

	"denm-gateway/internal/general/bus"
	"denm-gateway/internal/general/logger"
	"denm-gateway/internal/general/metrics"
)

func testHandler(t *testing.T) (*Handler, *bus.Bus) {
	t.Helper()
	b := bus.New()
	return New(b, logger.New("api-test", logger.LevelError), metrics.New()), b
}

func TestPostDenm_PublishesOnBus(t *testing.T) {
	h, b := testHandler(t)

	var published []json.RawMessage
	b.Subscribe(bus.TopicDenmOutgoing, func(payload json.RawMessage) {
		published = append(published, payload)
	})

	body := `{"publisherId":"NO00001","originatingCountry":"NO","latitude":57.779017,"longitude":12.774981,"data":{"header":{"stationId":1234567}}}`
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/denm", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	require.Len(t, published, 1)
	assert.JSONEq(t, body, string(published[0]))
}

func TestPostDenm_MissingEnvelopeField(t *testing.T) {
	h, b := testHandler(t)

	published := 0
	b.Subscribe(bus.TopicDenmOutgoing, func(json.RawMessage) { published++ })

	// well-formed JSON, but no publisherId
	body := `{"originatingCountry":"NO","latitude":57.7,"longitude":12.7,"data":{"header":{"stationId":1}}}`
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/denm", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "publisherId")
	assert.Zero(t, published)
}

func TestPostDenm_DenmFieldOutOfRange(t *testing.T) {
	h, b := testHandler(t)

	published := 0
	b.Subscribe(bus.TopicDenmOutgoing, func(json.RawMessage) { published++ })

	// latitude 95 degrees scales past the schema bound
	body := `{"publisherId":"NO00001","originatingCountry":"NO","latitude":57.7,"longitude":12.7,` +
		`"data":{"header":{"stationId":1},"management":{"eventPosition":{"latitude":95.0,"longitude":0,"altitude":0}}}}`
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/denm", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "out of range")
	assert.Zero(t, published)
}

func TestPostDenm_TimestampBeforeEpoch(t *testing.T) {
	h, b := testHandler(t)

	published := 0
	b.Subscribe(bus.TopicDenmOutgoing, func(json.RawMessage) { published++ })

	body := `{"publisherId":"NO00001","originatingCountry":"NO","latitude":57.7,"longitude":12.7,` +
		`"data":{"header":{"stationId":1},"management":{"detectionTime":"2003-12-31 23:59:59 UTC"}}}`
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/denm", strings.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "epoch")
	assert.Zero(t, published)
}

func TestPostDenm_MalformedBody(t *testing.T) {
	h, _ := testHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("POST", "/denm", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON"}`, rec.Body.String())
}

func TestHealthz(t *testing.T) {
	h, _ := testHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSwaggerJSON_IsValidOpenAPI(t *testing.T) {
	h, _ := testHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/swagger.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/denm")
}

func TestAPIDocs_ServesHTML(t *testing.T) {
	h, _ := testHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api-docs", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "swagger-ui")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := testHandler(t)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "denm_gateway_websocket_connections")
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/denm"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitForConnections(t *testing.T, hub *WSHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub never reached %d connections (have %d)", n, hub.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWS_FanOutToAllClients(t *testing.T) {
	h, b := testHandler(t)
	server := httptest.NewServer(h.Router())
	defer server.Close()

	c1 := dialWS(t, server)
	defer c1.Close()
	c2 := dialWS(t, server)
	defer c2.Close()
	waitForConnections(t, h.Hub(), 2)

	want := `{"header":{"stationId":1234567}}`
	b.Publish(bus.TopicDenmIncoming, json.RawMessage(want))

	for _, conn := range []*websocket.Conn{c1, c2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		mt, payload, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, mt)
		assert.JSONEq(t, want, string(payload))
	}
}

func TestWS_DisconnectedClientIsRemoved(t *testing.T) {
	h, b := testHandler(t)
	server := httptest.NewServer(h.Router())
	defer server.Close()

	conn := dialWS(t, server)
	waitForConnections(t, h.Hub(), 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, h.Hub(), 0)

	// publishing with no clients must not panic
	b.Publish(bus.TopicDenmIncoming, json.RawMessage(`{}`))
}

func TestWS_InboundFramesAreDiscarded(t *testing.T) {
	h, b := testHandler(t)
	server := httptest.NewServer(h.Router())
	defer server.Close()

	conn := dialWS(t, server)
	defer conn.Close()
	waitForConnections(t, h.Hub(), 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"ignored":true}`)))

	// the connection stays usable for server pushes afterwards
	want := `{"header":{"stationId":1}}`
	time.Sleep(50 * time.Millisecond)
	b.Publish(bus.TopicDenmIncoming, json.RawMessage(want))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, want, string(payload))
}

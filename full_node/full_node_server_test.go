package full_node

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Luismorlan/chain_in_go/config"
	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestServer(t *testing.T, f *FullNode, c config.AppConfig) *httptest.Server {
	sev := NewFullNodeServer(c, f)
	ts := httptest.NewServer(sev.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getChain(t *testing.T, url string) model.Ledger {
	resp, err := http.Get(url + "/chain")
	require.Nil(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	l := model.Ledger{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&l))
	return l
}

func postBlock(t *testing.T, url string, body string) *http.Response {
	resp, err := http.Post(url+"/add_block", "application/json", strings.NewReader(body))
	require.Nil(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGetChain(t *testing.T) {
	f := createTestFullNode(t, 2)
	ts := createTestServer(t, f, config.DefaultAppConfig())

	l := getChain(t, ts.URL)
	assert.Len(t, l.Chain, 1)
	assert.Equal(t, 2, l.Difficulty)
	assert.Equal(t, "0", l.Chain[0].PrevHash)
}

func TestGetChainWireFormat(t *testing.T) {
	f := createTestFullNode(t, 0)
	ts := createTestServer(t, f, config.DefaultAppConfig())

	resp, err := http.Get(ts.URL + "/chain")
	require.Nil(t, err)
	defer resp.Body.Close()
	raw := map[string]interface{}{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Contains(t, raw, "chain")
	assert.Contains(t, raw, "difficulty")
	block := raw["chain"].([]interface{})[0].(map[string]interface{})
	for _, key := range []string{"timestamp", "transactions", "previous_hash", "nonce", "hash"} {
		assert.Contains(t, block, key)
	}
	assert.Equal(t, []interface{}{}, block["transactions"])
}

func TestAddBlockScenario(t *testing.T) {
	f := createTestFullNode(t, 2)
	ts := createTestServer(t, f, config.DefaultAppConfig())

	resp := postBlock(t, ts.URL, `[{"sender":"A","receiver":"B","amount":10}]`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
	msg := map[string]string{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, map[string]string{"message": "Block added successfully"}, msg)

	resp = postBlock(t, ts.URL, `[]`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	l := getChain(t, ts.URL)
	require.Len(t, l.Chain, 3)
	assert.True(t, utils.IsValidLedger(&l))
	assert.Equal(t, l.Chain[0].Hash, l.Chain[1].PrevHash)
	assert.Equal(t, l.Chain[1].Hash, l.Chain[2].PrevHash)
	assert.True(t, strings.HasPrefix(l.Chain[1].Hash, "00"))
	assert.True(t, strings.HasPrefix(l.Chain[2].Hash, "00"))
	assert.Equal(t, []model.Transaction{{Sender: "A", Receiver: "B", Amount: 10}}, l.Chain[1].Transactions)
	assert.Equal(t, []model.Transaction{}, l.Chain[2].Transactions)
}

func TestAddBlockRejectsMalformedBodies(t *testing.T) {
	f := createTestFullNode(t, 0)
	ts := createTestServer(t, f, config.DefaultAppConfig())

	bodies := []string{
		``,
		`not json`,
		`null`,
		`{"sender":"A","receiver":"B","amount":10}`,
		`[{"sender":"A","receiver":"B"}]`,
		`[{"sender":"A","amount":1}]`,
		`[{"sender":"A","receiver":"B","amount":-1}]`,
		`[{"sender":"A","receiver":"B","amount":1.5}]`,
		`[{"sender":1,"receiver":"B","amount":1}]`,
		`[] []`,
	}
	for _, body := range bodies {
		resp := postBlock(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	l := getChain(t, ts.URL)
	assert.Len(t, l.Chain, 1)
}

func TestAddBlockBodyTooLarge(t *testing.T) {
	f := createTestFullNode(t, 0)
	c := config.DefaultAppConfig()
	c.MAX_BODY_BYTES = 64
	ts := createTestServer(t, f, c)

	body := `[` + strings.Repeat(`{"sender":"A","receiver":"B","amount":1},`, 10) + `{"sender":"A","receiver":"B","amount":1}]`
	resp := postBlock(t, ts.URL, body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	f := createTestFullNode(t, 0)
	ts := createTestServer(t, f, config.DefaultAppConfig())

	resp, err := http.Post(ts.URL+"/chain", "application/json", bytes.NewReader(nil))
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/add_block")
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestValidateAndStatsEndpoints(t *testing.T) {
	f := createTestFullNode(t, 0)
	ts := createTestServer(t, f, config.DefaultAppConfig())
	postBlock(t, ts.URL, `[{"sender":"A","receiver":"B","amount":10}]`)

	resp, err := http.Get(ts.URL + "/validate")
	require.Nil(t, err)
	defer resp.Body.Close()
	valid := map[string]bool{}
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&valid))
	assert.Equal(t, map[string]bool{"valid": true}, valid)

	resp2, err := http.Get(ts.URL + "/stats")
	require.Nil(t, err)
	defer resp2.Body.Close()
	s := Stats{}
	require.Nil(t, json.NewDecoder(resp2.Body).Decode(&s))
	assert.Equal(t, f.ID(), s.InstanceID)
	assert.Equal(t, uint64(1), s.BlocksAppended)
	assert.Equal(t, 1, s.Height)
}

func TestPoisonedNodeReturnsUnavailable(t *testing.T) {
	f := createTestFullNode(t, 0)
	ts := createTestServer(t, f, config.DefaultAppConfig())
	assert.Panics(t, func() {
		f.withLock(func() error { panic("boom") })
	})

	resp, err := http.Get(ts.URL + "/chain")
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = postBlock(t, ts.URL, `[]`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := createTestFullNode(t, 0)
	c := config.DefaultAppConfig()
	c.CORS_ORIGINS = []string{"http://localhost:3000"}
	ts := createTestServer(t, f, c)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/chain", nil)
	require.Nil(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.Nil(t, err)
	resp.Body.Close()
	assert.Equal(t, "", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServeAndShutdown(t *testing.T) {
	f := createTestFullNode(t, 0)
	c := config.DefaultAppConfig()
	c.LISTEN_ADDR = "127.0.0.1:0"
	sev := NewFullNodeServer(c, f)

	lis, err := net.Listen("tcp", c.LISTEN_ADDR)
	require.Nil(t, err)
	done := make(chan error, 1)
	go func() { done <- sev.Serve(lis) }()

	l := getChain(t, "http://"+lis.Addr().String())
	assert.Len(t, l.Chain, 1)

	require.Nil(t, sev.Shutdown(context.Background()))
	assert.Nil(t, <-done)
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/pkg/errors"
)

// DEFAULT_TIMEOUT bounds reads. Appends may mine for a long time, so they only
// stop when the caller's context does.
const DEFAULT_TIMEOUT = 10 * time.Second

// FullNodeClient talks to a full node's HTTP API.
type FullNodeClient struct {
	baseURL    string
	httpClient *http.Client
}

// StatusError is returned when the node answers with a non 200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("full node returned %d: %s", e.StatusCode, e.Body)
}

// NewFullNodeClient creates a client for the node at baseURL, e.g.
// "http://127.0.0.1:8080".
func NewFullNodeClient(baseURL string) *FullNodeClient {
	return &FullNodeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *FullNodeClient) BaseURL() string {
	return c.baseURL
}

// GetChain fetches the node's whole ledger.
func (c *FullNodeClient) GetChain(ctx context.Context) (*model.Ledger, error) {
	ctx, cancel := context.WithTimeout(ctx, DEFAULT_TIMEOUT)
	defer cancel()
	l := model.Ledger{}
	if err := c.do(ctx, http.MethodGet, "/chain", nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// AddBlock asks the node to mine txs into a new block and returns its message.
func (c *FullNodeClient) AddBlock(ctx context.Context, txs []model.Transaction) (string, error) {
	if txs == nil {
		txs = []model.Transaction{}
	}
	body, err := json.Marshal(txs)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode transactions")
	}
	res := map[string]string{}
	if err := c.do(ctx, http.MethodPost, "/add_block", body, &res); err != nil {
		return "", err
	}
	return res["message"], nil
}

// Validate asks the node to recheck its chain.
func (c *FullNodeClient) Validate(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, DEFAULT_TIMEOUT)
	defer cancel()
	res := map[string]bool{}
	if err := c.do(ctx, http.MethodGet, "/validate", nil, &res); err != nil {
		return false, err
	}
	return res["valid"], nil
}

func (c *FullNodeClient) do(ctx context.Context, method string, path string, body []byte, out interface{}) error {
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := ioutil.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s response", path)
	}
	return nil
}

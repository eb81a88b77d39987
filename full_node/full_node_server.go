package full_node

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Luismorlan/chain_in_go/config"
	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	uuid "github.com/satori/go.uuid"
)

const ADD_BLOCK_MESSAGE = "Block added successfully"

// FullNodeServer exposes a full node over HTTP.
type FullNodeServer struct {
	fullNode *FullNode
	// Where ListenAndServe binds.
	addr string
	// Largest accepted request body.
	maxBodyBytes int64
	// Browser origins allowed by CORS, none disables it.
	corsOrigins []string

	httpServer *http.Server
}

// Create a new server in front of fullNode. Nothing is bound until Serve or
// ListenAndServe.
func NewFullNodeServer(c config.AppConfig, fullNode *FullNode) *FullNodeServer {
	sev := &FullNodeServer{
		fullNode:     fullNode,
		addr:         c.LISTEN_ADDR,
		maxBodyBytes: c.MAX_BODY_BYTES,
		corsOrigins:  c.CORS_ORIGINS,
	}
	sev.httpServer = &http.Server{
		Handler: sev.Handler(),
	}
	return sev
}

// Handler returns the full routing table with logging and CORS applied.
func (sev *FullNodeServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chain", sev.handleChain)
	mux.HandleFunc("/add_block", sev.handleAddBlock)
	mux.HandleFunc("/validate", sev.handleValidate)
	mux.HandleFunc("/stats", sev.handleStats)

	var h http.Handler = mux
	if len(sev.corsOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: sev.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(h)
	}
	return withRequestLog(h)
}

func (sev *FullNodeServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", sev.addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", sev.addr)
	}
	return sev.Serve(lis)
}

// Serve blocks until Shutdown. It returns nil after a clean shutdown.
func (sev *FullNodeServer) Serve(lis net.Listener) error {
	log.Println("Starting to serve HTTP at:", lis.Addr())
	err := sev.httpServer.Serve(lis)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx is done.
// A request that is still mining keeps running until the node's mining context is
// cancelled.
func (sev *FullNodeServer) Shutdown(ctx context.Context) error {
	return sev.httpServer.Shutdown(ctx)
}

func (sev *FullNodeServer) handleChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	l, err := sev.fullNode.ReadSnapshot()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (sev *FullNodeServer) handleAddBlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 1. Deserialize
	txs, err := decodeTransactions(http.MaxBytesReader(w, r.Body, sev.maxBodyBytes))
	if err != nil {
		// MaxBytesReader has no typed error before go1.19, only this message.
		// TODO: switch to errors.As with *http.MaxBytesError once go.mod moves to 1.19.
		if strings.Contains(err.Error(), "request body too large") {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	// 2. Mine and append
	block, err := sev.fullNode.Append(txs)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	log.Printf("Added block %s with %d transactions at nonce %d", block.Hash, len(block.Transactions), block.Nonce)

	// 3. Success Response
	writeJSON(w, http.StatusOK, map[string]string{
		"message": ADD_BLOCK_MESSAGE,
	})
}

func (sev *FullNodeServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	valid, err := sev.fullNode.Validate()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"valid": valid,
	})
}

func (sev *FullNodeServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s, err := sev.fullNode.Stats()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// The wire shape of a transaction. Pointers tell a missing field from a zero one.
type transactionRequest struct {
	Sender   *string `json:"sender"`
	Receiver *string `json:"receiver"`
	Amount   *uint64 `json:"amount"`
}

// decodeTransactions reads exactly one JSON array of transactions from body. All
// three fields of every transaction are required.
func decodeTransactions(body io.Reader) ([]model.Transaction, error) {
	dec := json.NewDecoder(body)
	var reqs *[]transactionRequest
	if err := dec.Decode(&reqs); err != nil {
		return nil, err
	}
	if reqs == nil {
		return nil, errors.New("expected a list of transactions")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the transaction list")
	}

	txs := make([]model.Transaction, 0, len(*reqs))
	for i, req := range *reqs {
		if req.Sender == nil || req.Receiver == nil || req.Amount == nil {
			return nil, errors.Errorf("transaction %d: sender, receiver and amount are required", i)
		}
		txs = append(txs, model.Transaction{
			Sender:   *req.Sender,
			Receiver: *req.Receiver,
			Amount:   *req.Amount,
		})
	}
	return txs, nil
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch errors.Cause(err) {
	case ErrLedgerPoisoned, utils.ErrMiningInterrupted:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Println("ledger operation failed:", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("failed to write response:", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLog tags every response with an X-Request-Id and logs it once served.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewV4().String()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %s %d %s", id, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

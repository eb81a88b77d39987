package wallet

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/Luismorlan/chain_in_go/client"
	"github.com/Luismorlan/chain_in_go/layout"
	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/jroimartin/gocui"
	"github.com/pkg/errors"
)

var ErrNotConnected = errors.New("wallet is not connected to a full node, use connect <host> <port>")

// Wallet batches transfers locally and sends them to a full node as one block.
type Wallet struct {
	FullNodeClient *client.FullNodeClient
	// Transfers queued since the last successful submit.
	pending []model.Transaction
	// Bumped whenever queued transactions are dropped, so a submit in flight knows
	// the queue it read is gone.
	epoch uint64
	m     sync.Mutex
	// Where logs go, nil means the standard logger.
	g *gocui.Gui
}

func NewWallet(g *gocui.Gui) *Wallet {
	return &Wallet{
		g: g,
	}
}

func (w *Wallet) Log(msg string) {
	if w.g == nil {
		log.Println(msg)
		return
	}
	layout.Log(w.g, msg)
}

func (w *Wallet) SetFullNodeConnection(host string, port string) {
	w.m.Lock()
	defer w.m.Unlock()
	w.FullNodeClient = client.NewFullNodeClient("http://" + net.JoinHostPort(host, port))
}

func (w *Wallet) getClient() (*client.FullNodeClient, error) {
	w.m.Lock()
	defer w.m.Unlock()
	if w.FullNodeClient == nil {
		return nil, ErrNotConnected
	}
	return w.FullNodeClient, nil
}

// Transfer queues one transaction for the next submit.
func (w *Wallet) Transfer(sender string, receiver string, amount uint64) {
	w.m.Lock()
	defer w.m.Unlock()
	w.pending = append(w.pending, model.Transaction{
		Sender:   sender,
		Receiver: receiver,
		Amount:   amount,
	})
}

// Pending returns a copy of the queued transactions.
func (w *Wallet) Pending() []model.Transaction {
	w.m.Lock()
	defer w.m.Unlock()
	return utils.CopyTransactions(w.pending)
}

func (w *Wallet) Clear() {
	w.m.Lock()
	defer w.m.Unlock()
	w.pending = nil
	w.epoch++
}

func (w *Wallet) snapshotPending() ([]model.Transaction, uint64) {
	w.m.Lock()
	defer w.m.Unlock()
	return utils.CopyTransactions(w.pending), w.epoch
}

// Submit sends every queued transaction as a single block and waits for it to be
// mined. Queued transactions are only dropped once the node accepted them. An empty
// queue submits an empty block. A Clear while mining drops everything queued, the
// submitted block still lands on the node.
func (w *Wallet) Submit(ctx context.Context) (int, error) {
	c, err := w.getClient()
	if err != nil {
		return 0, err
	}
	txs, epoch := w.snapshotPending()
	if _, err := c.AddBlock(ctx, txs); err != nil {
		return 0, err
	}

	w.m.Lock()
	defer w.m.Unlock()
	if w.epoch != epoch {
		return len(txs), nil
	}
	// Transfers queued while mining stay for the next submit. Without a Clear the
	// queue only grew, so txs is still its prefix.
	w.pending = w.pending[len(txs):]
	if len(w.pending) == 0 {
		w.pending = nil
	}
	w.epoch++
	return len(txs), nil
}

// ChainSummary renders one line per block of the node's chain.
func (w *Wallet) ChainSummary(ctx context.Context) (string, error) {
	c, err := w.getClient()
	if err != nil {
		return "", err
	}
	l, err := c.GetChain(ctx)
	if err != nil {
		return "", err
	}
	return FormatLedger(l), nil
}

// FormatLedger renders one line per block, oldest first.
func FormatLedger(l *model.Ledger) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "difficulty %d, %d blocks\n", l.Difficulty, len(l.Chain))
	for i := range l.Chain {
		b := &l.Chain[i]
		fmt.Fprintf(&sb, "#%d %s prev %s nonce %d txs %d\n", i, utils.ShortHex(b.Hash, 6), utils.ShortHex(b.PrevHash, 6), b.Nonce, len(b.Transactions))
	}
	return sb.String()
}

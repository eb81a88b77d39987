package visualize

import (
	"bytes"
	"io"
	"io/ioutil"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/bradleyjkemp/memviz"
)

// We re-define the block here so the graph shows short hashes and one edge per link,
// instead of the full model.
type transaction struct {
	sender   string
	receiver string
	amount   uint64
}

type block struct {
	height    int
	hash      string
	prevHash  string
	timestamp int64
	nonce     uint64
	txs       []transaction
	prev      *block
}

// The hashes are too long to render, keep the first and last 6 characters.
func shortenString(s string) string {
	return utils.ShortHex(s, 6)
}

func blockToBlock(b *model.Block, height int) *block {
	n := &block{
		height:    height,
		hash:      shortenString(b.Hash),
		prevHash:  shortenString(b.PrevHash),
		timestamp: b.Timestamp,
		nonce:     b.Nonce,
	}
	for _, tx := range b.Transactions {
		n.txs = append(n.txs, transaction{sender: tx.Sender, receiver: tx.Receiver, amount: tx.Amount})
	}
	return n
}

// Return the tail of the last d blocks, each pointing at its predecessor.
func constructData(l *model.Ledger, d int) *block {
	blocks := l.LastBlocks(d)
	first := len(l.Chain) - len(blocks)
	var tail *block
	for i := range blocks {
		n := blockToBlock(&blocks[i], first+i)
		n.prev = tail
		tail = n
	}
	return tail
}

// Render writes the last d blocks of l as a graphviz document to w.
func Render(l *model.Ledger, d int, w io.Writer) {
	tail := constructData(l, d)
	if tail == nil {
		return
	}
	memviz.Map(w, tail)
}

// RenderToFile writes the graphviz document to fpath. Turn it into an image
// with `dot -Tpng fpath -o chain.png`.
func RenderToFile(l *model.Ledger, d int, fpath string) error {
	buf := &bytes.Buffer{}
	Render(l, d, buf)
	return ioutil.WriteFile(fpath, buf.Bytes(), 0644)
}

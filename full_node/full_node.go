package full_node

import (
	"context"
	"sync"
	"time"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/atomic"
)

// ErrLedgerPoisoned is returned by every call after a panic escaped while the
// ledger lock was held. There is no way back from it except a restart.
var ErrLedgerPoisoned = errors.New("ledger is unavailable after a failure while it was locked")

// LedgerService is everything the request layer may do with the shared ledger.
//
// Both calls take the same exclusive lock. ReadSnapshot holds it only long enough to
// deep copy the ledger. Append holds it while the new block is built and mined, so a
// slow seal blocks every other caller until it is done, and readers never see a
// block that is not fully sealed.
type LedgerService interface {
	ReadSnapshot() (model.Ledger, error)
	Append(txs []model.Transaction) (*model.Block, error)
}

// Stats are the node's counters since startup.
type Stats struct {
	InstanceID      string `json:"instance_id"`
	Height          int    `json:"height"`
	Difficulty      int    `json:"difficulty"`
	BlocksAppended  uint64 `json:"blocks_appended"`
	HashesComputed  uint64 `json:"hashes_computed"`
	LastSealMillis  int64  `json:"last_seal_ms"`
	AppendsRejected uint64 `json:"appends_rejected"`
}

// A full node owns the ledger and serializes all access to it.
type FullNode struct {
	// The ledger it needs to maintain.
	ledger *model.Ledger
	// A single mutex for reading and changing the ledger. Readers and writers are
	// not distinguished.
	m sync.Mutex
	// Set once a panic escapes while m is held. Readable without m.
	poisoned *atomic.Bool
	// Mining stops when this is done. It lives as long as the process, not a request.
	ctx context.Context
	// Clock for block timestamps.
	now func() time.Time
	// A unique indentifier of this node, only used for logs and stats.
	uuid string

	blocksAppended  *atomic.Uint64
	hashesComputed  *atomic.Uint64
	lastSealMillis  *atomic.Int64
	appendsRejected *atomic.Uint64
}

// NewFullNode takes ownership of l. Mining is interrupted once ctx is done.
func NewFullNode(ctx context.Context, l *model.Ledger) *FullNode {
	return &FullNode{
		ledger:          l,
		ctx:             ctx,
		now:             time.Now,
		uuid:            uuid.NewV4().String(),
		poisoned:        atomic.NewBool(false),
		blocksAppended:  atomic.NewUint64(0),
		hashesComputed:  atomic.NewUint64(0),
		lastSealMillis:  atomic.NewInt64(0),
		appendsRejected: atomic.NewUint64(0),
	}
}

func (f *FullNode) ID() string {
	return f.uuid
}

// withLock runs fn with the ledger locked. A panic inside fn poisons the node before
// it propagates.
func (f *FullNode) withLock(fn func() error) error {
	f.m.Lock()
	defer f.m.Unlock()
	if f.poisoned.Load() {
		return ErrLedgerPoisoned
	}
	defer func() {
		if r := recover(); r != nil {
			f.poisoned.Store(true)
			panic(r)
		}
	}()
	return fn()
}

// Return a deep copy of the ledger.
func (f *FullNode) ReadSnapshot() (model.Ledger, error) {
	l := model.Ledger{}
	err := f.withLock(func() error {
		return copier.CopyWithOption(&l, f.ledger, copier.Option{DeepCopy: true})
	})
	if err != nil {
		return model.Ledger{}, err
	}
	// Keep empty transaction lists as [] rather than null on the wire.
	for i := range l.Chain {
		if l.Chain[i].Transactions == nil {
			l.Chain[i].Transactions = []model.Transaction{}
		}
	}
	return l, nil
}

// Append mines a new block holding txs on top of the tail and appends it. This is a
// really long process for high difficulties and the ledger stays locked throughout.
func (f *FullNode) Append(txs []model.Transaction) (*model.Block, error) {
	var block *model.Block
	err := f.withLock(func() error {
		start := time.Now()
		b, err := utils.AppendBlock(f.ctx, f.ledger, txs, f.now)
		if err != nil {
			return err
		}
		f.lastSealMillis.Store(time.Since(start).Milliseconds())
		f.hashesComputed.Add(b.Nonce + 1)
		f.blocksAppended.Inc()
		// The ledger keeps its own copy of the block.
		cp := *b
		cp.Transactions = utils.CopyTransactions(b.Transactions)
		block = &cp
		return nil
	})
	if err != nil {
		f.appendsRejected.Inc()
		return nil, err
	}
	return block, nil
}

// Validate checks hashes and links of the whole chain.
func (f *FullNode) Validate() (bool, error) {
	var valid bool
	err := f.withLock(func() error {
		valid = utils.IsValidLedger(f.ledger)
		return nil
	})
	return valid, err
}

// Audit reports the first block whose hash misses the ledger's difficulty.
func (f *FullNode) Audit() (int, bool, error) {
	var idx int
	var found bool
	err := f.withLock(func() error {
		idx, found = utils.FindUnsealedBlock(f.ledger)
		return nil
	})
	return idx, found, err
}

// Save writes the ledger to fpath. It is meant to run once, after serving stopped.
func (f *FullNode) Save(fpath string) error {
	return f.withLock(func() error {
		return utils.SaveLedger(f.ledger, fpath)
	})
}

func (f *FullNode) Stats() (Stats, error) {
	s := Stats{
		InstanceID:      f.uuid,
		BlocksAppended:  f.blocksAppended.Load(),
		HashesComputed:  f.hashesComputed.Load(),
		LastSealMillis:  f.lastSealMillis.Load(),
		AppendsRejected: f.appendsRejected.Load(),
	}
	err := f.withLock(func() error {
		s.Height = f.ledger.Height()
		s.Difficulty = f.ledger.Difficulty
		return nil
	})
	return s, err
}

// IsPoisoned never waits for the ledger lock.
func (f *FullNode) IsPoisoned() bool {
	return f.poisoned.Load()
}

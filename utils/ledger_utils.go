package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/pkg/errors"
)

var ErrEmptyLedger = errors.New("ledger has no genesis block")

// InvalidBlockError describes the first block that breaks the chain.
type InvalidBlockError struct {
	Index  int
	Reason string
}

func (e *InvalidBlockError) Error() string {
	return fmt.Sprintf("block %d is invalid: %s", e.Index, e.Reason)
}

// NewLedger creates a ledger holding only a freshly mined genesis block.
func NewLedger(ctx context.Context, difficulty int, now func() time.Time) (*model.Ledger, error) {
	genesis, err := CreateNewBlock(ctx, nil, model.GENESIS_PREV_HASH, difficulty, now)
	if err != nil {
		return nil, errors.Wrap(err, "failed to mine genesis block")
	}
	return &model.Ledger{
		Chain:      []model.Block{*genesis},
		Difficulty: difficulty,
	}, nil
}

// AppendBlock mines a block with txs on top of the ledger's tail and appends it.
// Note that the ledger is changed directly, callers must hold whatever lock guards it
// for the whole call.
func AppendBlock(ctx context.Context, l *model.Ledger, txs []model.Transaction, now func() time.Time) (*model.Block, error) {
	tail := l.Tail()
	if tail == nil {
		return nil, ErrEmptyLedger
	}
	block, err := CreateNewBlock(ctx, txs, tail.Hash, l.Difficulty, now)
	if err != nil {
		return nil, err
	}
	l.Chain = append(l.Chain, *block)
	return block, nil
}

// ValidateLedger walks every block after genesis and returns the first one whose
// stored hash doesn't match its content or whose previous hash doesn't point at the
// block before it. The genesis block is trusted as is. Hashes are not checked against
// the difficulty, see FindUnsealedBlock for that.
func ValidateLedger(l *model.Ledger) error {
	for i := 1; i < len(l.Chain); i++ {
		block := &l.Chain[i]
		prev := &l.Chain[i-1]
		if Fingerprint(block) != block.Hash {
			return &InvalidBlockError{Index: i, Reason: "hash does not match block content"}
		}
		if block.PrevHash != prev.Hash {
			return &InvalidBlockError{Index: i, Reason: "previous hash does not match block " + fmt.Sprint(i-1)}
		}
	}
	return nil
}

func IsValidLedger(l *model.Ledger) bool {
	return ValidateLedger(l) == nil
}

// FindUnsealedBlock returns the index of the first block, genesis included, whose
// stored hash does not have the ledger's difficulty in leading 0s.
func FindUnsealedBlock(l *model.Ledger) (int, bool) {
	for i := 0; i < len(l.Chain); i++ {
		if !HasLeadingZeros(l.Chain[i].Hash, l.Difficulty) {
			return i, true
		}
	}
	return -1, false
}

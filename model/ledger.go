package model

// Ledger is the append-only chain of sealed blocks. Chain[0] is always the genesis
// block. Blocks are values and are never modified once appended.
type Ledger struct {
	// All blocks, oldest first.
	Chain []Block `json:"chain"`
	// How many leading hex 0s a new block's hash must have.
	Difficulty int `json:"difficulty"`
}

// Tail returns the most recently appended block.
func (l *Ledger) Tail() *Block {
	if len(l.Chain) == 0 {
		return nil
	}
	return &l.Chain[len(l.Chain)-1]
}

// Height is the number of blocks after genesis.
func (l *Ledger) Height() int {
	return len(l.Chain) - 1
}

// LastBlocks returns up to n of the most recent blocks, oldest first. The returned
// slice aliases the ledger.
func (l *Ledger) LastBlocks(n int) []Block {
	if n <= 0 {
		return nil
	}
	if n > len(l.Chain) {
		n = len(l.Chain)
	}
	return l.Chain[len(l.Chain)-n:]
}

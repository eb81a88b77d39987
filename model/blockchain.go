package model

// GENESIS_PREV_HASH is the previous hash of the genesis block. It is a sentinel, not
// a real digest.
const GENESIS_PREV_HASH = "0"

type Block struct {
	// Unix seconds at which the block was created.
	Timestamp int64 `json:"timestamp"`
	// Transactions carried by this block, in submission order.
	Transactions []Transaction `json:"transactions"`
	// Hash of the previous block in the hex format.
	PrevHash string `json:"previous_hash"`
	// Nonce is the miner's challenge for sealing the block.
	Nonce uint64 `json:"nonce"`
	// Hash of this entire block in the hex string format.
	Hash string `json:"hash"`
}

// IsGenesis reports whether the block carries the genesis sentinel.
func (b *Block) IsGenesis() bool {
	return b.PrevHash == GENESIS_PREV_HASH
}

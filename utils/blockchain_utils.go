package utils

import (
	"context"
	"strconv"
	"time"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/pkg/errors"
)

// MAX_DIFFICULTY is the largest usable difficulty: every hex character of the digest
// is required to be 0.
const MAX_DIFFICULTY = DIGEST_HEX_LEN

var (
	ErrInvalidDifficulty = errors.New("difficulty out of range")
	ErrMiningInterrupted = errors.New("mining interrupted")
	ErrNonceExhausted    = errors.New("failed to find any nonce")
)

// CheckDifficulty returns ErrInvalidDifficulty if difficulty is not in [0, MAX_DIFFICULTY].
func CheckDifficulty(difficulty int) error {
	if difficulty < 0 || difficulty > MAX_DIFFICULTY {
		return errors.Wrapf(ErrInvalidDifficulty, "difficulty %d, max %d", difficulty, MAX_DIFFICULTY)
	}
	return nil
}

// GetBlockBytes is the canonical serialization hashed into a block's fingerprint:
// timestamp, transactions, previous hash and nonce, concatenated in that order.
// The block's own hash is excluded.
func GetBlockBytes(block *model.Block) []byte {
	var rawBlock []byte
	rawBlock = strconv.AppendInt(rawBlock, block.Timestamp, 10)
	rawBlock = append(rawBlock, GetTransactionsBytes(block.Transactions)...)
	rawBlock = append(rawBlock, block.PrevHash...)
	rawBlock = strconv.AppendUint(rawBlock, block.Nonce, 10)
	return rawBlock
}

// Fingerprint recomputes the hex SHA256 digest of the block from its stored fields.
func Fingerprint(block *model.Block) string {
	return SHA256Hex(GetBlockBytes(block))
}

// MatchDifficulty hashes the block once and reports whether the digest has
// difficulty leading hex 0s.
func MatchDifficulty(block *model.Block, difficulty int) (bool, string) {
	digest := Fingerprint(block)
	return HasLeadingZeros(digest, difficulty), digest
}

// HasLeadingZeros reports whether the first difficulty characters of a hex string
// are all '0'. A difficulty longer than the string never matches.
func HasLeadingZeros(hexDigest string, difficulty int) bool {
	if difficulty < 0 || difficulty > len(hexDigest) {
		return false
	}
	for i := 0; i < difficulty; i++ {
		if hexDigest[i] != '0' {
			return false
		}
	}
	return true
}

// Mine a block, fill the nonce and hash given the current difficulty setting.
// The search starts at nonce 0. It only stops early when ctx is done, in which
// case the block is left unsealed.
func Mine(ctx context.Context, block *model.Block, difficulty int) error {
	if err := CheckDifficulty(difficulty); err != nil {
		return err
	}
	var nonce uint64
	for {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ErrMiningInterrupted, "at nonce %d: %v", nonce, ctx.Err())
		default:
		}
		block.Nonce = nonce
		isMatched, digest := MatchDifficulty(block, difficulty)
		if isMatched {
			block.Hash = digest
			return nil
		}
		nonce++
		if nonce == 0 {
			return ErrNonceExhausted
		}
	}
}

// Create a block from the provided transactions and the previous hash, then mine it.
// now defaults to time.Now.
func CreateNewBlock(ctx context.Context, txs []model.Transaction, prevHash string, difficulty int, now func() time.Time) (*model.Block, error) {
	if now == nil {
		now = time.Now
	}
	block := model.Block{
		Timestamp:    now().Unix(),
		Transactions: CopyTransactions(txs),
		PrevHash:     prevHash,
	}

	err := Mine(ctx, &block, difficulty)
	if err != nil {
		return nil, err
	}

	return &block, nil
}

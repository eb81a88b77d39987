package utils

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, difficulty := range []int{0, 1, 2} {
		l := createTestLedger(t, difficulty)
		fpath := filepath.Join(dir, "ledger.json")

		require.Nil(t, SaveLedger(l, fpath))
		loaded, err := LoadLedger(fpath)
		require.Nil(t, err)
		assert.Equal(t, l, loaded)
		assert.True(t, IsValidLedger(loaded))
	}
}

func TestSaveLedgerFormat(t *testing.T) {
	l, err := NewLedger(context.Background(), 0, fixedClock)
	require.Nil(t, err)
	fpath := filepath.Join(t.TempDir(), "ledger.json")
	require.Nil(t, SaveLedger(l, fpath))

	data, err := ioutil.ReadFile(fpath)
	require.Nil(t, err)
	expected := `{
  "chain": [
    {
      "timestamp": 1700000000,
      "transactions": [],
      "previous_hash": "0",
      "nonce": 0,
      "hash": "` + l.Chain[0].Hash + `"
    }
  ],
  "difficulty": 0
}`
	assert.Equal(t, expected, string(data))
}

func TestSaveLedgerOverwrites(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "ledger.json")
	require.Nil(t, ioutil.WriteFile(fpath, []byte(strings.Repeat("x", 10000)), 0644))

	l := createTestLedger(t, 0)
	require.Nil(t, SaveLedger(l, fpath))
	loaded, err := LoadLedger(fpath)
	require.Nil(t, err)
	assert.Equal(t, l, loaded)
}

func TestSaveLedgerIOFailure(t *testing.T) {
	l := createTestLedger(t, 0)
	err := SaveLedger(l, filepath.Join(t.TempDir(), "missing", "ledger.json"))
	assert.NotNil(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestLoadLedgerNotFound(t *testing.T) {
	_, err := LoadLedger(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, ErrSnapshotNotFound, errors.Cause(err))
}

func TestLoadLedgerCorrupt(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage":    "not json",
		"truncated":  `{"chain": [{"timestamp": 1, "transactions": [`,
		"empty":      `{"chain": [], "difficulty": 1}`,
		"wrongtype":  `{"chain": "abc", "difficulty": 1}`,
		"negative":   `{"chain": [{"timestamp": 1, "transactions": [], "previous_hash": "0", "nonce": -1, "hash": "a"}], "difficulty": 1}`,
		"difficulty": `{"chain": [{"timestamp": 1, "transactions": [], "previous_hash": "0", "nonce": 1, "hash": "a"}], "difficulty": 65}`,
	}
	for name, content := range cases {
		fpath := filepath.Join(dir, name+".json")
		require.Nil(t, ioutil.WriteFile(fpath, []byte(content), 0644))
		_, err := LoadLedger(fpath)
		assert.Equal(t, ErrSnapshotCorrupt, errors.Cause(err), name)
	}
}

func TestLoadLedgerNullTransactions(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "ledger.json")
	content := `{"chain": [{"timestamp": 1, "transactions": null, "previous_hash": "0", "nonce": 1, "hash": "a"}], "difficulty": 0}`
	require.Nil(t, ioutil.WriteFile(fpath, []byte(content), 0644))
	l, err := LoadLedger(fpath)
	require.Nil(t, err)
	assert.Equal(t, []model.Transaction{}, l.Chain[0].Transactions)
}

func TestLoadOrCreateLedger(t *testing.T) {
	dir := t.TempDir()
	fpath := filepath.Join(dir, "ledger.json")

	// Nothing on disk: fresh ledger.
	l, loaded, err := LoadOrCreateLedger(context.Background(), fpath, 1, fixedClock)
	require.Nil(t, err)
	assert.False(t, loaded)
	assert.Len(t, l.Chain, 1)
	assert.Equal(t, 1, l.Difficulty)

	// A saved ledger wins, including its difficulty.
	saved := createTestLedger(t, 2)
	require.Nil(t, SaveLedger(saved, fpath))
	l, loaded, err = LoadOrCreateLedger(context.Background(), fpath, 1, fixedClock)
	require.Nil(t, err)
	assert.True(t, loaded)
	assert.Equal(t, saved, l)

	// Corrupt snapshot falls back too.
	require.Nil(t, ioutil.WriteFile(fpath, []byte("{"), 0644))
	l, loaded, err = LoadOrCreateLedger(context.Background(), fpath, 0, fixedClock)
	require.Nil(t, err)
	assert.False(t, loaded)
	assert.Len(t, l.Chain, 1)
}

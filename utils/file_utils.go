package utils

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"os"
	"time"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/pkg/errors"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrSnapshotCorrupt  = errors.New("snapshot is corrupt")
)

// SaveLedger writes the whole ledger as indented JSON, replacing whatever fpath held.
// The write is not atomic, a crash midway leaves a truncated file.
func SaveLedger(l *model.Ledger, fpath string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode ledger")
	}
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrapf(err, "failed to open snapshot %s", fpath)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write snapshot %s", fpath)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close snapshot %s", fpath)
	}
	return nil
}

// LoadLedger reads a ledger written by SaveLedger. The error's cause is
// ErrSnapshotNotFound when there is no file and ErrSnapshotCorrupt when the content
// is not a ledger; any other error comes from reading the file.
func LoadLedger(fpath string) (*model.Ledger, error) {
	data, err := ioutil.ReadFile(fpath)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrSnapshotNotFound, fpath)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read snapshot %s", fpath)
	}

	l := model.Ledger{}
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.Wrapf(ErrSnapshotCorrupt, "%s: %v", fpath, err)
	}
	if len(l.Chain) == 0 {
		return nil, errors.Wrapf(ErrSnapshotCorrupt, "%s: chain is empty", fpath)
	}
	if err := CheckDifficulty(l.Difficulty); err != nil {
		return nil, errors.Wrapf(ErrSnapshotCorrupt, "%s: %v", fpath, err)
	}
	// A null transaction list hashes the same as an empty one.
	for i := range l.Chain {
		if l.Chain[i].Transactions == nil {
			l.Chain[i].Transactions = []model.Transaction{}
		}
	}
	return &l, nil
}

// LoadOrCreateLedger loads the snapshot at fpath, falling back to a fresh ledger
// mined at difficulty if it can't be loaded. The bool reports whether the snapshot
// was used. A loaded ledger keeps its own difficulty.
func LoadOrCreateLedger(ctx context.Context, fpath string, difficulty int, now func() time.Time) (*model.Ledger, bool, error) {
	l, err := LoadLedger(fpath)
	if err == nil {
		log.Printf("Loaded ledger from %s: %d blocks, difficulty %d", fpath, len(l.Chain), l.Difficulty)
		return l, true, nil
	}
	if errors.Cause(err) == ErrSnapshotNotFound {
		log.Println("No snapshot found at", fpath, "- creating a fresh ledger")
	} else {
		log.Printf("Failed to load snapshot, creating a fresh ledger: %v", err)
	}

	l, err = NewLedger(ctx, difficulty, now)
	if err != nil {
		return nil, false, err
	}
	log.Printf("Created genesis block %s at difficulty %d", l.Chain[0].Hash, difficulty)
	return l, false, nil
}

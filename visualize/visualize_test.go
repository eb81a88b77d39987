package visualize

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/Luismorlan/chain_in_go/model"
	"github.com/Luismorlan/chain_in_go/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLedger(t *testing.T) *model.Ledger {
	l, err := utils.NewLedger(context.Background(), 0, nil)
	require.Nil(t, err)
	for i := 0; i < 3; i++ {
		_, err := utils.AppendBlock(context.Background(), l, []model.Transaction{{Sender: "A", Receiver: "B", Amount: uint64(i)}}, nil)
		require.Nil(t, err)
	}
	return l
}

func TestConstructData(t *testing.T) {
	l := createTestLedger(t)

	tail := constructData(l, 2)
	require.NotNil(t, tail)
	assert.Equal(t, 3, tail.height)
	require.NotNil(t, tail.prev)
	assert.Equal(t, 2, tail.prev.height)
	assert.Nil(t, tail.prev.prev)
	assert.Equal(t, tail.prev.hash, tail.prevHash)

	// Asking for more than exists stops at genesis.
	tail = constructData(l, 100)
	depth := 0
	for n := tail; n != nil; n = n.prev {
		depth++
	}
	assert.Equal(t, 4, depth)

	assert.Nil(t, constructData(l, 0))
}

func TestRender(t *testing.T) {
	l := createTestLedger(t)
	buf := &bytes.Buffer{}
	Render(l, 2, buf)
	assert.NotZero(t, buf.Len())
	assert.Contains(t, buf.String(), l.Chain[3].Hash[:6])

	empty := &bytes.Buffer{}
	Render(l, 0, empty)
	assert.Zero(t, empty.Len())
}

func TestRenderToFile(t *testing.T) {
	l := createTestLedger(t)
	fpath := filepath.Join(t.TempDir(), "chain.dot")
	require.Nil(t, RenderToFile(l, 4, fpath))
	data, err := ioutil.ReadFile(fpath)
	require.Nil(t, err)
	assert.Contains(t, string(data), l.Chain[0].Hash[:6])
}

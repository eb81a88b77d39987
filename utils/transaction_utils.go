package utils

import (
	"strconv"

	"github.com/Luismorlan/chain_in_go/model"
)

// GetTransactionBytes renders a transaction in its canonical textual form:
//
//	Transaction { sender: "A", receiver: "B", amount: 10 }
//
// Every field is included and strings are quoted, so any change to a field
// changes the bytes.
func GetTransactionBytes(t *model.Transaction) []byte {
	var data []byte
	data = append(data, "Transaction { sender: "...)
	data = strconv.AppendQuote(data, t.Sender)
	data = append(data, ", receiver: "...)
	data = strconv.AppendQuote(data, t.Receiver)
	data = append(data, ", amount: "...)
	data = strconv.AppendUint(data, t.Amount, 10)
	data = append(data, " }"...)
	return data
}

// GetTransactionsBytes renders an ordered list of transactions as
// "[tx, tx, ...]". An empty list is "[]".
func GetTransactionsBytes(txs []model.Transaction) []byte {
	data := []byte{'['}
	for i := 0; i < len(txs); i++ {
		if i > 0 {
			data = append(data, ", "...)
		}
		data = append(data, GetTransactionBytes(&txs[i])...)
	}
	return append(data, ']')
}

// CopyTransactions returns a copy of txs that is never nil.
func CopyTransactions(txs []model.Transaction) []model.Transaction {
	res := make([]model.Transaction, len(txs))
	copy(res, txs)
	return res
}

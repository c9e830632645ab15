package creation

import (
	"sync"
)

// TransactionPool is the source of the transactions put in new events.
type TransactionPool interface {
	// HasBufferedSignatureTransactions returns true if state-signature
	// transactions are waiting to be put in an event.
	HasBufferedSignatureTransactions() bool
	// GetTransactions removes and returns up to max application transactions
	// and every buffered signature transaction. A non-positive max means no
	// limit.
	GetTransactions(max int) (transactions [][]byte, signatureTransactions [][]byte)
}

// InmemTransactionPool is a thread-safe FIFO TransactionPool. Transactions are
// submitted by the application while the intake stage drains them.
type InmemTransactionPool struct {
	sync.Mutex

	transactions          [][]byte
	signatureTransactions [][]byte
}

// NewInmemTransactionPool ...
func NewInmemTransactionPool() *InmemTransactionPool {
	return &InmemTransactionPool{}
}

// SubmitTransaction adds an application transaction.
func (p *InmemTransactionPool) SubmitTransaction(tx []byte) {
	p.Lock()
	defer p.Unlock()
	p.transactions = append(p.transactions, tx)
}

// SubmitSignatureTransaction adds a state-signature transaction.
func (p *InmemTransactionPool) SubmitSignatureTransaction(tx []byte) {
	p.Lock()
	defer p.Unlock()
	p.signatureTransactions = append(p.signatureTransactions, tx)
}

// HasBufferedSignatureTransactions implements TransactionPool
func (p *InmemTransactionPool) HasBufferedSignatureTransactions() bool {
	p.Lock()
	defer p.Unlock()
	return len(p.signatureTransactions) > 0
}

// Len returns the number of buffered application transactions.
func (p *InmemTransactionPool) Len() int {
	p.Lock()
	defer p.Unlock()
	return len(p.transactions)
}

// GetTransactions implements TransactionPool
func (p *InmemTransactionPool) GetTransactions(max int) ([][]byte, [][]byte) {
	p.Lock()
	defer p.Unlock()

	n := len(p.transactions)
	if max > 0 && max < n {
		n = max
	}

	txs := p.transactions[:n:n]
	p.transactions = p.transactions[n:]

	sigTxs := p.signatureTransactions
	p.signatureTransactions = nil

	return txs, sigTxs
}

package ledger

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tesserachain/tessera/common"
	"github.com/tesserachain/tessera/common/util"
	"github.com/tesserachain/tessera/store"
	"github.com/tesserachain/tessera/store/database"
)

var logger *log.Entry = util.GetLoggerForModule("ledger")

var (
	// ErrAccountNotFound is returned when a read misses both the cache and the store.
	ErrAccountNotFound = errors.New("AccountNotFound")
	// ErrAccountLocked is returned when another transaction holds the account's write lock.
	ErrAccountLocked = errors.New("AccountLocked")
	// ErrTxNotFound is returned for operations on an unknown transaction.
	ErrTxNotFound = errors.New("TransactionNotFound")
	// ErrInvalidTx is returned for operations on a transaction that is no longer active.
	ErrInvalidTx = errors.New("InvalidTransaction")
	// ErrInsufficientFunds is returned when a transfer exceeds the account balance.
	ErrInsufficientFunds = errors.New("InsufficientFunds")
)

// accountKeyPrefix namespaces account records in the backing database.
var accountKeyPrefix = common.Bytes("la/")

// Account is the mutable state attached to one address.
type Account struct {
	Owner   common.Address
	Balance uint64
	Data    common.Bytes
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	data := make(common.Bytes, len(a.Data))
	copy(data, a.Data)
	return Account{Owner: a.Owner, Balance: a.Balance, Data: data}
}

// TxStatus is the lifecycle state of a ledger transaction.
type TxStatus byte

const (
	// TxActive means the transaction can still acquire locks and commit.
	TxActive TxStatus = iota
	// TxCommitted means the transaction's writes were applied.
	TxCommitted
	// TxAborted means the transaction's writes were discarded.
	TxAborted
)

// Tx is one atomic unit of account mutations. Writes stage inside the
// transaction and hit the accounts database only on Commit.
type Tx struct {
	ID        uint64
	Slot      uint64
	Status    TxStatus
	CreatedAt time.Time

	locked  map[common.Address]struct{}
	pending map[common.Address]Account
}

// WriteGuard is exclusive write access to one account within a transaction.
// Mutations stay inside the guard until Save is called; the account lock is
// held until the owning transaction commits or rolls back.
type WriteGuard struct {
	addr    common.Address
	account Account
	tx      *Tx
	saved   bool
}

// Address returns the address of the guarded account.
func (g *WriteGuard) Address() common.Address {
	return g.addr
}

// Balance returns the staged balance.
func (g *WriteGuard) Balance() uint64 {
	return g.account.Balance
}

// SetBalance stages a new balance.
func (g *WriteGuard) SetBalance(balance uint64) {
	g.account.Balance = balance
}

// Owner returns the staged owner.
func (g *WriteGuard) Owner() common.Address {
	return g.account.Owner
}

// SetOwner stages a new owner.
func (g *WriteGuard) SetOwner(owner common.Address) {
	g.account.Owner = owner
}

// Data returns the staged data. The caller must not mutate it in place.
func (g *WriteGuard) Data() common.Bytes {
	return g.account.Data
}

// SetData stages new data.
func (g *WriteGuard) SetData(data common.Bytes) {
	g.account.Data = data
}

// Debit subtracts amount from the staged balance.
func (g *WriteGuard) Debit(amount uint64) error {
	if g.account.Balance < amount {
		return ErrInsufficientFunds
	}
	g.account.Balance -= amount
	return nil
}

// Credit adds amount to the staged balance.
func (g *WriteGuard) Credit(amount uint64) {
	g.account.Balance += amount
}

// Save stages the guard's account into the owning transaction. A guard that
// is never saved leaves the account untouched.
func (g *WriteGuard) Save() {
	g.tx.pending[g.addr] = g.account.Clone()
	g.saved = true
}

// AccountsDB is the transactional account store. Reads are served from an
// in-memory cache backed by a durable database; writes go through pessimistic
// per-account locks and land atomically at transaction commit. Safe for
// concurrent use.
type AccountsDB struct {
	db database.Database

	mu       sync.RWMutex
	accounts map[common.Address]Account
	txs      map[uint64]*Tx
	locks    map[common.Address]uint64 // address -> locking tx ID
	nextTxID uint64
}

// NewAccountsDB creates an AccountsDB over the given database.
func NewAccountsDB(db database.Database) *AccountsDB {
	return &AccountsDB{
		db:       db,
		accounts: make(map[common.Address]Account),
		txs:      make(map[uint64]*Tx),
		locks:    make(map[common.Address]uint64),
		nextTxID: 1,
	}
}

// BeginTx opens a new transaction bound to the given slot.
func (a *AccountsDB) BeginTx(slot uint64) *Tx {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx := &Tx{
		ID:        a.nextTxID,
		Slot:      slot,
		Status:    TxActive,
		CreatedAt: time.Now(),
		locked:    make(map[common.Address]struct{}),
		pending:   make(map[common.Address]Account),
	}
	a.nextTxID++
	a.txs[tx.ID] = tx
	return tx
}

// GetAccount returns the committed state of an account.
func (a *AccountsDB) GetAccount(addr common.Address) (Account, error) {
	a.mu.RLock()
	account, ok := a.accounts[addr]
	a.mu.RUnlock()
	if ok {
		return account.Clone(), nil
	}
	return a.loadFromStore(addr)
}

// LoadForWrite locks the account for the transaction and returns a write
// guard over its current state. Missing accounts materialize as empty ones,
// so a first write can create the account. Returns ErrAccountLocked if
// another active transaction holds the lock.
func (a *AccountsDB) LoadForWrite(addr common.Address, tx *Tx) (*WriteGuard, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, ok := a.txs[tx.ID]
	if !ok {
		return nil, ErrTxNotFound
	}
	if stored.Status != TxActive {
		return nil, ErrInvalidTx
	}
	if owner, locked := a.locks[addr]; locked && owner != tx.ID {
		return nil, ErrAccountLocked
	}
	a.locks[addr] = tx.ID
	stored.locked[addr] = struct{}{}

	// Re-reading inside the same transaction observes its own staged writes.
	account, ok := stored.pending[addr]
	if !ok {
		account, ok = a.accounts[addr]
		if !ok {
			if loaded, err := a.loadFromStore(addr); err == nil {
				account = loaded
				a.accounts[addr] = loaded.Clone()
			} else {
				account = Account{}
			}
		}
	}

	return &WriteGuard{addr: addr, account: account.Clone(), tx: stored}, nil
}

// CommitTx atomically applies the transaction's staged writes and releases
// its locks.
func (a *AccountsDB) CommitTx(tx *Tx) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, err := a.activeTx(tx)
	if err != nil {
		return err
	}

	for addr, account := range stored.pending {
		a.accounts[addr] = account
		if err := a.db.Put(accountKey(addr), EncodeAccount(account)); err != nil {
			logger.WithFields(log.Fields{"address": addr, "error": err}).Error("Failed to persist account")
		}
	}
	a.releaseLocks(stored)
	stored.Status = TxCommitted
	tx.Status = TxCommitted
	return nil
}

// RollbackTx discards the transaction's staged writes and releases its locks.
// Committed account state is untouched.
func (a *AccountsDB) RollbackTx(tx *Tx) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stored, err := a.activeTx(tx)
	if err != nil {
		return err
	}

	a.releaseLocks(stored)
	stored.Status = TxAborted
	tx.Status = TxAborted
	return nil
}

// TxStatus reports the status of a transaction by ID.
func (a *AccountsDB) TxStatus(id uint64) (TxStatus, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tx, ok := a.txs[id]
	if !ok {
		return TxAborted, ErrTxNotFound
	}
	return tx.Status, nil
}

func (a *AccountsDB) activeTx(tx *Tx) (*Tx, error) {
	stored, ok := a.txs[tx.ID]
	if !ok {
		return nil, ErrTxNotFound
	}
	if stored.Status != TxActive {
		return nil, ErrInvalidTx
	}
	return stored, nil
}

func (a *AccountsDB) releaseLocks(tx *Tx) {
	for addr := range tx.locked {
		if a.locks[addr] == tx.ID {
			delete(a.locks, addr)
		}
	}
}

func (a *AccountsDB) loadFromStore(addr common.Address) (Account, error) {
	raw, err := a.db.Get(accountKey(addr))
	if err != nil {
		if err == store.ErrKeyNotFound {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, errors.Wrapf(err, "failed to load account %v", addr)
	}
	return DecodeAccount(raw)
}

func accountKey(addr common.Address) common.Bytes {
	return append(append(common.Bytes{}, accountKeyPrefix...), addr.Bytes()...)
}

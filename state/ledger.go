package state

import (
	"math/big"
	"sync"

	"kavochain/core/types"
	"kavochain/native/governance"
	"kavochain/native/multisig"
	"kavochain/native/staking"
	"kavochain/native/token"
	"kavochain/native/treasury"
)

// Ledger is an in-memory backend satisfying every engine state interface.
// All reads and writes deep-copy at the boundary so callers can never alias
// stored records. A single mutex serializes access; the engines themselves
// assume one operation runs to completion at a time.
type Ledger struct {
	mu sync.Mutex

	accounts  map[[20]byte]*types.Account
	policy    *token.Policy
	activity  map[[20]byte]*token.ActivityRecord
	treasury  *treasury.Ledger
	pool      *staking.Pool
	positions map[[20]byte]*staking.Position

	nextActionID   uint64
	actions        map[uint64]*multisig.Action
	nextProposalID uint64
	proposals      map[uint64]*governance.Proposal
}

// NewLedger returns an empty ledger with fresh registries.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:       make(map[[20]byte]*types.Account),
		activity:       make(map[[20]byte]*token.ActivityRecord),
		positions:      make(map[[20]byte]*staking.Position),
		actions:        make(map[uint64]*multisig.Action),
		proposals:      make(map[uint64]*governance.Proposal),
		nextActionID:   1,
		nextProposalID: 1,
	}
}

func accountKey(addr []byte) [20]byte {
	var key [20]byte
	copy(key[:], addr)
	return key
}

// GetAccount returns a copy of the account, or a zeroed account when the
// address has never been touched.
func (l *Ledger) GetAccount(addr []byte) (*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[accountKey(addr)]
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	return account.Clone(), nil
}

// PutAccount stores a copy of the account under the address.
func (l *Ledger) PutAccount(addr []byte, account *types.Account) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[accountKey(addr)] = account.Clone()
	return nil
}

// TokenPolicyGet returns a copy of the token policy singleton.
func (l *Ledger) TokenPolicyGet() (*token.Policy, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.policy == nil {
		return &token.Policy{}, nil
	}
	return l.policy.Clone(), nil
}

// TokenPolicyPut replaces the token policy singleton.
func (l *Ledger) TokenPolicyPut(policy *token.Policy) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.policy = policy.Clone()
	return nil
}

// ActivityGet returns a copy of the per-address activity record.
func (l *Ledger) ActivityGet(addr [20]byte) (*token.ActivityRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.activity[addr]
	if !ok {
		return nil, false, nil
	}
	return record.Clone(), true, nil
}

// ActivityPut stores a copy of the per-address activity record.
func (l *Ledger) ActivityPut(addr [20]byte, record *token.ActivityRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activity[addr] = record.Clone()
	return nil
}

// TreasuryGet returns a copy of the treasury ledger singleton.
func (l *Ledger) TreasuryGet() (*treasury.Ledger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.treasury == nil {
		return &treasury.Ledger{}, nil
	}
	return l.treasury.Clone(), nil
}

// TreasuryPut replaces the treasury ledger singleton.
func (l *Ledger) TreasuryPut(ledger *treasury.Ledger) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.treasury = ledger.Clone()
	return nil
}

// StakePoolGet returns a copy of the staking pool singleton.
func (l *Ledger) StakePoolGet() (*staking.Pool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pool == nil {
		return staking.NewPool(nil), nil
	}
	return l.pool.Clone(), nil
}

// StakePoolPut replaces the staking pool singleton.
func (l *Ledger) StakePoolPut(pool *staking.Pool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pool = pool.Clone()
	return nil
}

// StakePositionGet returns a copy of the owner's position if present.
func (l *Ledger) StakePositionGet(owner [20]byte) (*staking.Position, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	position, ok := l.positions[owner]
	if !ok {
		return nil, false, nil
	}
	return position.Clone(), true, nil
}

// StakePositionPut stores a copy of the position keyed by its owner.
func (l *Ledger) StakePositionPut(position *staking.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.positions[position.Owner] = position.Clone()
	return nil
}

// StakePositionDelete removes the owner's position.
func (l *Ledger) StakePositionDelete(owner [20]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.positions, owner)
	return nil
}

// MultisigNextActionID allocates a fresh action id.
func (l *Ledger) MultisigNextActionID() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextActionID
	l.nextActionID++
	return id, nil
}

// MultisigPutAction stores a copy of the action.
func (l *Ledger) MultisigPutAction(action *multisig.Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions[action.ID] = action.Clone()
	return nil
}

// MultisigGetAction returns a copy of the action if present.
func (l *Ledger) MultisigGetAction(id uint64) (*multisig.Action, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	action, ok := l.actions[id]
	if !ok {
		return nil, false, nil
	}
	return action.Clone(), true, nil
}

// MultisigDeleteAction removes the action from the registry.
func (l *Ledger) MultisigDeleteAction(id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.actions, id)
	return nil
}

// GovernanceNextProposalID allocates a fresh proposal id.
func (l *Ledger) GovernanceNextProposalID() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextProposalID
	l.nextProposalID++
	return id, nil
}

// GovernancePut stores a copy of the proposal.
func (l *Ledger) GovernancePut(proposal *governance.Proposal) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proposals[proposal.ID] = proposal.Clone()
	return nil
}

// GovernanceGet returns a copy of the proposal if present.
func (l *Ledger) GovernanceGet(id uint64) (*governance.Proposal, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	proposal, ok := l.proposals[id]
	if !ok {
		return nil, false, nil
	}
	return proposal.Clone(), true, nil
}

// Credit adds amount to the address balance. Used for genesis funding.
func (l *Ledger) Credit(addr []byte, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := accountKey(addr)
	account, ok := l.accounts[key]
	if !ok {
		account = &types.Account{Balance: big.NewInt(0)}
		l.accounts[key] = account
	}
	if account.Balance == nil {
		account.Balance = big.NewInt(0)
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return nil
}

// Package memory provides an in-memory Store implementation for testing.
// This store is not suitable for production use - data is not persisted.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avirel/letterdesk/store"
)

// Store implements store.Store with in-memory storage.
// Thread-safe for concurrent use. Not suitable for production.
type Store struct {
	accounts   sync.Map // map[string]*accountRec
	addressIdx sync.Map // map[string]string (address -> accountID)
	letters    sync.Map // map[string]*letterRec
	messages   sync.Map // map[string]*messageRec

	letterLocks sync.Map // map[string]*sync.Mutex (per-letter locks for signing)

	seq       int64 // insertion sequence, breaks timestamp ties
	connected int32
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

func (s *Store) nextSeq() int64 {
	return atomic.AddInt64(&s.seq, 1)
}

// getLetterLock returns the mutex for a letter ID, creating one if needed.
func (s *Store) getLetterLock(id string) *sync.Mutex {
	lock, _ := s.letterLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// =============================================================================
// Account Operations
// =============================================================================

type accountRec struct {
	account store.Account
	seq     int64
}

// CreateAccount creates an account. Address uniqueness is enforced with an
// atomic LoadOrStore on the address index, so concurrent registrations of
// the same address cannot both succeed.
func (s *Store) CreateAccount(ctx context.Context, data store.AccountData) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if _, loaded := s.addressIdx.LoadOrStore(data.Address, id); loaded {
		return nil, store.ErrDuplicateEntry
	}

	now := time.Now().UTC()
	rec := &accountRec{
		account: store.Account{
			ID:             id,
			Name:           data.Name,
			Address:        data.Address,
			CredentialHash: append([]byte(nil), data.CredentialHash...),
			Roles:          append([]store.Role(nil), data.Roles...),
			Department:     data.Department,
			Section:        data.Section,
			Hosteller:      data.Hosteller,
			HostelName:     data.HostelName,
			RollNumber:     data.RollNumber,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		seq: s.nextSeq(),
	}
	s.accounts.Store(id, rec)

	return cloneAccount(&rec.account), nil
}

// GetAccount retrieves an account by internal id.
func (s *Store) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.accounts.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(&v.(*accountRec).account), nil
}

// GetAccountByAddress retrieves an account by external address.
func (s *Store) GetAccountByAddress(ctx context.Context, address string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	idv, ok := s.addressIdx.Load(address)
	if !ok {
		return nil, store.ErrNotFound
	}
	v, ok := s.accounts.Load(idv.(string))
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAccount(&v.(*accountRec).account), nil
}

// UpdateAccount applies a partial profile update.
func (s *Store) UpdateAccount(ctx context.Context, id string, upd store.AccountUpdate) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.accounts.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := v.(*accountRec)

	// Swap in a fresh record rather than mutating in place so concurrent
	// readers never observe a half-applied update.
	next := *rec
	a := &next.account
	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Department != nil {
		a.Department = *upd.Department
	}
	if upd.Section != nil {
		a.Section = *upd.Section
	}
	if upd.Hosteller != nil {
		a.Hosteller = *upd.Hosteller
	}
	if upd.HostelName != nil {
		a.HostelName = *upd.HostelName
	}
	if upd.RollNumber != nil {
		a.RollNumber = *upd.RollNumber
	}
	if upd.Roles != nil {
		a.Roles = append([]store.Role(nil), upd.Roles...)
	}
	a.UpdatedAt = time.Now().UTC()
	s.accounts.Store(id, &next)

	return cloneAccount(a), nil
}

// ListAccounts returns accounts in insertion order, optionally excluding
// accounts carrying the given role tag.
func (s *Store) ListAccounts(ctx context.Context, excludeRole store.Role) ([]*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	var recs []*accountRec
	s.accounts.Range(func(_, v any) bool {
		recs = append(recs, v.(*accountRec))
		return true
	})
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	accounts := make([]*store.Account, 0, len(recs))
	for _, rec := range recs {
		if excludeRole != "" && rec.account.HasRole(excludeRole) {
			continue
		}
		accounts = append(accounts, cloneAccount(&rec.account))
	}
	return accounts, nil
}

// =============================================================================
// Letter Operations
// =============================================================================

type letterRec struct {
	letter store.Letter
	seq    int64
}

// CreateLetter creates an unsigned letter.
func (s *Store) CreateLetter(ctx context.Context, data store.LetterData) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	rec := &letterRec{
		letter: store.Letter{
			ID:        uuid.NewString(),
			OwnerID:   data.OwnerID,
			Name:      data.Name,
			Type:      data.Type,
			Form:      data.Form,
			CreatedAt: time.Now().UTC(),
		},
		seq: s.nextSeq(),
	}
	s.letters.Store(rec.letter.ID, rec)

	return cloneLetter(&rec.letter), nil
}

// GetLetter retrieves a letter by id.
func (s *Store) GetLetter(ctx context.Context, id string) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, store.ErrInvalidID
	}

	v, ok := s.letters.Load(id)
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneLetter(&v.(*letterRec).letter), nil
}

// ListLetters returns an owner's letters in insertion order.
func (s *Store) ListLetters(ctx context.Context, ownerID string) ([]*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	var recs []*letterRec
	s.letters.Range(func(_, v any) bool {
		rec := v.(*letterRec)
		if rec.letter.OwnerID == ownerID {
			recs = append(recs, rec)
		}
		return true
	})
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })

	letters := make([]*store.Letter, len(recs))
	for i, rec := range recs {
		letters[i] = cloneLetter(&rec.letter)
	}
	return letters, nil
}

// SetSignature attaches a signature to an unsigned letter. The per-letter
// lock makes the unsigned check and the write a single atomic step, so two
// concurrent signers cannot both succeed.
func (s *Store) SetSignature(ctx context.Context, letterID string, sig store.Signature) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if letterID == "" {
		return nil, store.ErrInvalidID
	}

	lock := s.getLetterLock(letterID)
	lock.Lock()
	defer lock.Unlock()

	v, ok := s.letters.Load(letterID)
	if !ok {
		return nil, store.ErrNotFound
	}
	rec := v.(*letterRec)

	if rec.letter.Signature != nil {
		return nil, store.ErrAlreadySigned
	}

	next := *rec
	sigCopy := sig
	next.letter.Signature = &sigCopy
	s.letters.Store(letterID, &next)

	return cloneLetter(&next.letter), nil
}

// =============================================================================
// Message Operations
// =============================================================================

type messageRec struct {
	message store.Message
	seq     int64
}

// CreateMessage persists a message with a server-assigned send timestamp.
func (s *Store) CreateMessage(ctx context.Context, data store.MessageData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	rec := &messageRec{
		message: store.Message{
			ID:               uuid.NewString(),
			OwnerID:          data.OwnerID,
			From:             data.From,
			To:               data.To,
			Subject:          data.Subject,
			Body:             data.Body,
			DigitalSignature: data.DigitalSignature,
			PublicKey:        data.PublicKey,
			LetterID:         data.LetterID,
			SentAt:           time.Now().UTC(),
		},
		seq: s.nextSeq(),
	}
	if data.Attachment != nil {
		att := *data.Attachment
		rec.message.Attachment = &att
	}
	s.messages.Store(rec.message.ID, rec)

	return cloneMessage(&rec.message), nil
}

// ListMessagesFor returns the combined inbox and outbox in one pass:
// messages the account initiated OR messages addressed to its address,
// newest first, capped at limit.
func (s *Store) ListMessagesFor(ctx context.Context, accountID, address string, limit int) ([]*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if accountID == "" {
		return nil, store.ErrInvalidID
	}

	var recs []*messageRec
	s.messages.Range(func(_, v any) bool {
		rec := v.(*messageRec)
		if rec.message.OwnerID == accountID || rec.message.To == address {
			recs = append(recs, rec)
		}
		return true
	})

	// SentAt descending; insertion sequence breaks equal timestamps.
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].message.SentAt.Equal(recs[j].message.SentAt) {
			return recs[i].seq > recs[j].seq
		}
		return recs[i].message.SentAt.After(recs[j].message.SentAt)
	})

	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	msgs := make([]*store.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = cloneMessage(&rec.message)
	}
	return msgs, nil
}

// =============================================================================
// Clones - records handed out never alias stored state.
// =============================================================================

func cloneAccount(a *store.Account) *store.Account {
	c := *a
	c.CredentialHash = append([]byte(nil), a.CredentialHash...)
	c.Roles = append([]store.Role(nil), a.Roles...)
	return &c
}

func cloneLetter(l *store.Letter) *store.Letter {
	c := *l
	if l.Signature != nil {
		sig := *l.Signature
		c.Signature = &sig
	}
	return &c
}

func cloneMessage(m *store.Message) *store.Message {
	c := *m
	if m.Attachment != nil {
		att := *m.Attachment
		c.Attachment = &att
	}
	return &c
}

// Compile-time check
var _ store.Store = (*Store)(nil)

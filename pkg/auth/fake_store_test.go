package auth

import (
	"context"
	"strings"
	"sync"
	"time"
)

// fakeStore is an in-memory Store for exercising the core flows without a
// database. It enforces the same uniqueness rules the SQL schema does:
// unique token keys, unique verification codes and at most one non-expired
// verification per identifier.
type fakeStore struct {
	mu            sync.Mutex
	identities    map[int64]*Identity
	tokens        map[string]*Token
	verifications map[int64]*Verification
	nextVID       int64
	groups        []Group

	// lookupErr, when set, is returned by every identity lookup to
	// simulate an unreachable store.
	lookupErr error
	// createVerificationErrs is a queue of errors returned by successive
	// CreateVerification calls before normal behavior resumes.
	createVerificationErrs []error
	// consumeErr, when set, is returned by ConsumeVerification.
	consumeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities:    make(map[int64]*Identity),
		tokens:        make(map[string]*Token),
		verifications: make(map[int64]*Verification),
	}
}

func (s *fakeStore) addIdentity(ident *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[ident.ID] = ident
}

func (s *fakeStore) findIdentity(match func(*Identity) bool) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, ident := range s.identities {
		if match(ident) {
			return ident, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) GetIdentityByUsername(ctx context.Context, username string) (*Identity, error) {
	return s.findIdentity(func(i *Identity) bool { return i.Username == username })
}

func (s *fakeStore) GetIdentityByEmail(ctx context.Context, email string) (*Identity, error) {
	return s.findIdentity(func(i *Identity) bool { return i.Email != "" && i.Email == email })
}

func (s *fakeStore) GetIdentityByPhone(ctx context.Context, phone string) (*Identity, error) {
	return s.findIdentity(func(i *Identity) bool {
		return i.Phone != "" && strings.EqualFold(i.Phone, phone)
	})
}

func (s *fakeStore) GetIdentityByAccessCode(ctx context.Context, code string) (*Identity, error) {
	return s.findIdentity(func(i *Identity) bool { return i.AccessCode != "" && i.AccessCode == code })
}

func (s *fakeStore) UpdateLastLogin(ctx context.Context, identityID int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ident, ok := s.identities[identityID]
	if !ok {
		return ErrNotFound
	}
	t := at
	ident.LastLogin = &t
	return nil
}

func (s *fakeStore) CreateToken(ctx context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.Key]; exists {
		return ErrDuplicate
	}
	s.tokens[token.Key] = token
	return nil
}

func (s *fakeStore) GetTokenByKey(ctx context.Context, key string) (*Token, *Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, nil, s.lookupErr
	}
	token, ok := s.tokens[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ident, ok := s.identities[token.IdentityID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return token, ident, nil
}

func (s *fakeStore) DeleteToken(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[key]; !ok {
		return ErrNotFound
	}
	delete(s.tokens, key)
	return nil
}

func (s *fakeStore) findVerification(match func(*Verification) bool) (*Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.verifications {
		if match(v) {
			return v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) FindActiveVerificationByEmail(ctx context.Context, email string) (*Verification, error) {
	return s.findVerification(func(v *Verification) bool { return !v.Expired && v.Email == email })
}

func (s *fakeStore) FindActiveVerificationByPhone(ctx context.Context, phone string) (*Verification, error) {
	return s.findVerification(func(v *Verification) bool { return !v.Expired && v.Phone == phone })
}

func (s *fakeStore) CreateVerification(ctx context.Context, v *Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createVerificationErrs) > 0 {
		err := s.createVerificationErrs[0]
		s.createVerificationErrs = s.createVerificationErrs[1:]
		return err
	}
	for _, existing := range s.verifications {
		if existing.Code == v.Code {
			return ErrDuplicate
		}
		if !existing.Expired {
			if v.Email != "" && existing.Email == v.Email {
				return ErrDuplicate
			}
			if v.Phone != "" && existing.Phone == v.Phone {
				return ErrDuplicate
			}
		}
	}
	s.nextVID++
	v.ID = s.nextVID
	v.CreatedAt = time.Now().UTC()
	s.verifications[v.ID] = v
	return nil
}

func (s *fakeStore) GetVerificationByCode(ctx context.Context, code string) (*Verification, error) {
	return s.findVerification(func(v *Verification) bool { return v.Code == code })
}

func (s *fakeStore) ConsumeVerification(ctx context.Context, verificationID, identityID int64, newHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumeErr != nil {
		return s.consumeErr
	}
	v, ok := s.verifications[verificationID]
	if !ok || v.Expired {
		return ErrNotFound
	}
	ident, ok := s.identities[identityID]
	if !ok {
		return ErrNotFound
	}
	ident.PasswordHash = newHash
	v.Expired = true
	return nil
}

func (s *fakeStore) ListGroups(ctx context.Context) ([]Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups, nil
}

// countingHasher is a deterministic Hasher that records how many
// comparisons ran, so tests can assert the miss path costs exactly as
// many comparisons as the hit path.
type countingHasher struct {
	mu       sync.Mutex
	compares int
}

func (h *countingHasher) Hash(secret string) (string, error) {
	return "hashed:" + secret, nil
}

func (h *countingHasher) Compare(hash, secret string) bool {
	h.mu.Lock()
	h.compares++
	h.mu.Unlock()
	return hash == "hashed:"+secret
}

func (h *countingHasher) compareCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compares
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/theschoolhq/gatekeeper/pkg/observability"
)

// DefaultPhonePattern is the phone format accepted on reset requests.
var DefaultPhonePattern = regexp.MustCompile(`^((\+213)|(00213)|(0))(6|7|5)[0-9]{8}$`)

// createRetries bounds the create loop when a fresh code collides with an
// existing one.
const createRetries = 5

// ResetRequest identifies the account asking for a password reset.
// Exactly one of Email or Phone must be set.
type ResetRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ResetFlow drives the one-time-code password reset state machine:
// request issues (or reuses) a pending verification and triggers
// delivery, validate probes a code, and consume atomically rewrites the
// password and expires the record.
type ResetFlow struct {
	store   Store
	hasher  Hasher
	sender  Sender
	phoneRe *regexp.Regexp
	logger  *observability.Logger
}

// ResetOption configures a ResetFlow.
type ResetOption func(*ResetFlow)

// WithPhonePattern overrides the accepted phone format.
func WithPhonePattern(re *regexp.Regexp) ResetOption {
	return func(f *ResetFlow) { f.phoneRe = re }
}

// NewResetFlow creates a reset flow. sender may be nil, in which case
// codes are issued but not delivered.
func NewResetFlow(store Store, hasher Hasher, sender Sender, logger *observability.Logger, opts ...ResetOption) *ResetFlow {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	f := &ResetFlow{
		store:   store,
		hasher:  hasher,
		sender:  sender,
		phoneRe: DefaultPhonePattern,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request issues a verification for the identifier, reusing any pending
// one so repeated requests return the same code. The code reaches the
// requester only through the delivery channel; delivery failures are
// logged and do not fail the request.
func (f *ResetFlow) Request(ctx context.Context, req ResetRequest) (*Verification, error) {
	if req.Email == "" && req.Phone == "" {
		return nil, ErrMissingIdentifier
	}
	if req.Email != "" && req.Phone != "" {
		return nil, ErrAmbiguousIdentifier
	}
	if req.Phone != "" && !f.phoneRe.MatchString(req.Phone) {
		return nil, ErrInvalidPhone
	}

	if err := f.identifierExists(ctx, req); err != nil {
		return nil, err
	}

	v, err := f.findOrCreate(ctx, req)
	if err != nil {
		return nil, err
	}

	if f.sender != nil && !v.Expired {
		if err := f.sender.Send(ctx, v); err != nil {
			f.logger.WithError(err).Warn("verification delivery failed")
		}
	}
	return v, nil
}

func (f *ResetFlow) identifierExists(ctx context.Context, req ResetRequest) error {
	var err error
	if req.Email != "" {
		_, err = f.store.GetIdentityByEmail(ctx, req.Email)
	} else {
		_, err = f.store.GetIdentityByPhone(ctx, req.Phone)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownIdentifier
		}
		return fmt.Errorf("identity lookup: %w", err)
	}
	return nil
}

// findOrCreate is check-then-act without a lock: the store's uniqueness
// constraint on non-expired identifiers is the real invariant enforcer,
// so a lost create race is folded back into "reuse the existing record".
func (f *ResetFlow) findOrCreate(ctx context.Context, req ResetRequest) (*Verification, error) {
	for attempt := 0; attempt < createRetries; attempt++ {
		existing, err := f.findActive(ctx, req)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("verification lookup: %w", err)
		}

		code, err := GenerateOTP()
		if err != nil {
			return nil, err
		}
		v := &Verification{Email: req.Email, Phone: req.Phone, Code: code}
		err = f.store.CreateVerification(ctx, v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("create verification: %w", err)
		}
		// Either a concurrent request won the race (next iteration reuses
		// its record) or the code collided (next iteration draws another).
	}
	return nil, fmt.Errorf("create verification: %w", ErrDuplicate)
}

func (f *ResetFlow) findActive(ctx context.Context, req ResetRequest) (*Verification, error) {
	if req.Email != "" {
		return f.store.FindActiveVerificationByEmail(ctx, req.Email)
	}
	return f.store.FindActiveVerificationByPhone(ctx, req.Phone)
}

// Validate reports whether code identifies a pending, unconsumed reset
// request. It never consumes the code.
func (f *ResetFlow) Validate(ctx context.Context, code string) (bool, error) {
	v, err := f.store.GetVerificationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("verification lookup: %w", err)
	}
	return !v.Expired, nil
}

// Consume exchanges a pending code for a password change. The password
// write and the expiry of the record commit in one transaction; a failure
// there is an infrastructure error, not a validation failure.
func (f *ResetFlow) Consume(ctx context.Context, code, newSecret, confirmSecret string) error {
	if newSecret != confirmSecret {
		return ErrSecretMismatch
	}

	v, err := f.store.GetVerificationByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownCode
		}
		return fmt.Errorf("verification lookup: %w", err)
	}
	if v.Expired {
		return ErrRequestExpired
	}

	var identity *Identity
	if v.Email != "" {
		identity, err = f.store.GetIdentityByEmail(ctx, v.Email)
	} else {
		identity, err = f.store.GetIdentityByPhone(ctx, v.Phone)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownIdentifier
		}
		return fmt.Errorf("identity lookup: %w", err)
	}

	hash, err := f.hasher.Hash(newSecret)
	if err != nil {
		return err
	}
	if err := f.store.ConsumeVerification(ctx, v.ID, identity.ID, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost a consume race: the record expired between the read
			// above and the transactional write.
			return ErrRequestExpired
		}
		return fmt.Errorf("consume verification: %w", err)
	}
	return nil
}

// Package auth verifies which wallet is behind a request. The verified key is
// stored in the gin context and read back with Caller; it is never trusted from
// the request body.
package auth

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/internal/logging"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

const (
	HeaderPubkey    = "X-Wallet-Pubkey"
	HeaderSignature = "X-Wallet-Signature"
	HeaderMessage   = "X-Wallet-Message"
)

// Mode selects how a caller is identified.
type Mode string

const (
	// ModeSignature requires a fresh ed25519 signature over a Message.
	ModeSignature Mode = "signature"
	// ModeHeader trusts X-Wallet-Pubkey. Use this ONLY for development/testing.
	ModeHeader Mode = "header"
)

// DefaultMaxAge is how old a signed message may be.
const DefaultMaxAge = 5 * time.Minute

var (
	ErrMissingPubkey    = errors.New("missing wallet public key")
	ErrInvalidPubkey    = errors.New("invalid wallet public key")
	ErrMissingSignature = errors.New("missing wallet signature")
	ErrInvalidSignature = errors.New("invalid wallet signature")
	ErrInvalidMessage   = errors.New("invalid signed message")
	ErrMessageMismatch  = errors.New("signed message does not match request")
	ErrExpired          = errors.New("signed message expired")
	ErrFutureTimestamp  = errors.New("signed message timestamp is in the future")
	ErrReplayed         = errors.New("signed message was already used")
)

// Verifier authenticates wallet callers.
type Verifier struct {
	mode   Mode
	maxAge time.Duration
	now    func() time.Time
	replay ReplayGuard
	log    *zap.Logger
}

// NewVerifier creates a Verifier. A non-positive maxAge uses DefaultMaxAge.
func NewVerifier(mode Mode, maxAge time.Duration, log *zap.Logger) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{mode: mode, maxAge: maxAge, now: time.Now, replay: NewMemoryReplayGuard(), log: log}
}

// WithReplayGuard replaces the in-process guard, typically with a
// RedisReplayGuard so consumed signatures are shared between instances.
func (v *Verifier) WithReplayGuard(g ReplayGuard) *Verifier {
	if g != nil {
		v.replay = g
	}
	return v
}

// Mode reports the configured mode.
func (v *Verifier) Mode() Mode { return v.mode }

// Verify returns the wallet behind r if it is authorized to perform action on
// resource. It does not check the signed Data or consume the signature; see
// Confirm.
func (v *Verifier) Verify(r *http.Request, action Action, resource string) (domain.Pubkey, error) {
	pk, _, err := v.verify(r, action, resource)
	return pk, err
}

func (v *Verifier) verify(r *http.Request, action Action, resource string) (domain.Pubkey, *signedRequest, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderPubkey))
	if raw == "" {
		return domain.Pubkey{}, nil, ErrMissingPubkey
	}
	pk, err := domain.ParsePubkey(raw)
	if err != nil {
		return domain.Pubkey{}, nil, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	if v.mode == ModeHeader {
		return pk, nil, nil
	}

	sigText := strings.TrimSpace(r.Header.Get(HeaderSignature))
	msgText := r.Header.Get(HeaderMessage)
	if sigText == "" || msgText == "" {
		return domain.Pubkey{}, nil, ErrMissingSignature
	}
	sig, err := base58.Decode(sigText)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return domain.Pubkey{}, nil, ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(pk[:]), []byte(msgText), sig) {
		return domain.Pubkey{}, nil, ErrInvalidSignature
	}

	var msg Message
	if err := json.Unmarshal([]byte(msgText), &msg); err != nil {
		return domain.Pubkey{}, nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.PublicKey != pk.String() || msg.Action != action || msg.ResourceID != resource {
		return domain.Pubkey{}, nil, ErrMessageMismatch
	}

	age := v.now().Sub(time.UnixMilli(msg.Timestamp))
	if age < 0 {
		return domain.Pubkey{}, nil, ErrFutureTimestamp
	}
	if age > v.maxAge {
		return domain.Pubkey{}, nil, ErrExpired
	}
	return pk, &signedRequest{verifier: v, msg: msg, signature: base58.Encode(sig)}, nil
}

// signedRequest is what Require leaves for Confirm in signature mode.
type signedRequest struct {
	verifier  *Verifier
	msg       Message
	signature string
}

// consume checks the signed arguments and spends the signature. The guard
// entry outlives the message, which expires maxAge after its timestamp.
func (s *signedRequest) consume(ctx context.Context, data map[string]string) error {
	if !maps.Equal(s.msg.Data, data) {
		return ErrMessageMismatch
	}
	fresh, err := s.verifier.replay.Claim(ctx, s.signature, s.verifier.maxAge)
	if err != nil {
		return fmt.Errorf("record signature: %w", err)
	}
	if !fresh {
		return ErrReplayed
	}
	return nil
}

// Require rejects requests whose wallet is not authorized for action on the
// resource named by resource, and records the verified wallet otherwise.
func (v *Verifier) Require(action Action, resource ResourceFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		pk, signed, err := v.verify(c.Request, action, resource(c))
		if err != nil {
			logging.For(c.Request.Context(), v.log).Debug("wallet verification failed",
				zap.String("action", string(action)), zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
			c.Abort()
			return
		}

		setCaller(c, pk)
		if signed != nil {
			c.Set(CtxSignedRequest, signed)
		}
		c.Next()
	}
}

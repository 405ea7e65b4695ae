package auth

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

const (
	CtxWalletPubkey  = "wallet_pubkey"
	CtxSignedRequest = "wallet_signed_request"
)

// Caller returns the wallet identity verified for this request.
// This is set by Verifier.Require.
func Caller(c *gin.Context) (domain.Pubkey, bool) {
	v, ok := c.Get(CtxWalletPubkey)
	if !ok {
		return domain.Pubkey{}, false
	}
	pk, ok := v.(domain.Pubkey)
	return pk, ok
}

func setCaller(c *gin.Context, pk domain.Pubkey) {
	c.Set(CtxWalletPubkey, pk)
}

// Confirm checks that the wallet signed exactly data for this request and marks
// the signature as used. Handlers call it after binding the body and before
// acting. It is a no-op when Require ran in header mode.
func Confirm(c *gin.Context, data map[string]string) error {
	v, ok := c.Get(CtxSignedRequest)
	if !ok {
		return nil
	}
	signed, ok := v.(*signedRequest)
	if !ok {
		return errors.New("signed request has unexpected type")
	}
	return signed.consume(c.Request.Context(), data)
}

// Rejected reports whether err from Confirm should be answered with 401.
func Rejected(err error) bool {
	return errors.Is(err, ErrMessageMismatch) || errors.Is(err, ErrReplayed)
}

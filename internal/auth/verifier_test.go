package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

type wallet struct {
	pub  domain.Pubkey
	priv ed25519.PrivateKey
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	var pk domain.Pubkey
	copy(pk[:], pub)
	return wallet{pub: pk, priv: priv}
}

func (w wallet) sign(r *http.Request, msg Message) {
	body := msg.Encode()
	r.Header.Set(HeaderPubkey, w.pub.String())
	r.Header.Set(HeaderMessage, string(body))
	r.Header.Set(HeaderSignature, base58.Encode(ed25519.Sign(w.priv, body)))
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestVerifier(mode Mode) *Verifier {
	v := NewVerifier(mode, 0, nil)
	v.now = func() time.Time { return fixedNow }
	return v
}

func TestVerifier_Signature(t *testing.T) {
	w := newWallet(t)
	other := newWallet(t)
	v := newTestVerifier(ModeSignature)
	const project = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

	valid := func() Message {
		return NewMessage(ActionWithdrawFunds, project, w.pub.String(), fixedNow.Add(-time.Minute))
	}

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantErr error
	}{
		{
			name:    "valid",
			prepare: func(r *http.Request) { w.sign(r, valid()) },
		},
		{
			name:    "missing pubkey",
			prepare: func(r *http.Request) {},
			wantErr: ErrMissingPubkey,
		},
		{
			name: "garbage pubkey",
			prepare: func(r *http.Request) {
				r.Header.Set(HeaderPubkey, "not-base58-0OIl")
			},
			wantErr: ErrInvalidPubkey,
		},
		{
			name: "missing signature",
			prepare: func(r *http.Request) {
				r.Header.Set(HeaderPubkey, w.pub.String())
			},
			wantErr: ErrMissingSignature,
		},
		{
			name: "signed by another wallet",
			prepare: func(r *http.Request) {
				other.sign(r, valid())
				r.Header.Set(HeaderPubkey, w.pub.String())
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "tampered message",
			prepare: func(r *http.Request) {
				w.sign(r, valid())
				m := valid()
				m.ResourceID = "elsewhere"
				r.Header.Set(HeaderMessage, string(m.Encode()))
			},
			wantErr: ErrInvalidSignature,
		},
		{
			name: "wrong action",
			prepare: func(r *http.Request) {
				m := valid()
				m.Action = ActionFundTreasury
				w.sign(r, m)
			},
			wantErr: ErrMessageMismatch,
		},
		{
			name: "wrong resource",
			prepare: func(r *http.Request) {
				m := valid()
				m.ResourceID = ResourceNew
				w.sign(r, m)
			},
			wantErr: ErrMessageMismatch,
		},
		{
			name: "public key field differs from header",
			prepare: func(r *http.Request) {
				m := valid()
				m.PublicKey = other.pub.String()
				w.sign(r, m)
			},
			wantErr: ErrMessageMismatch,
		},
		{
			name: "expired",
			prepare: func(r *http.Request) {
				m := valid()
				m.Timestamp = fixedNow.Add(-DefaultMaxAge - time.Second).UnixMilli()
				w.sign(r, m)
			},
			wantErr: ErrExpired,
		},
		{
			name: "future",
			prepare: func(r *http.Request) {
				m := valid()
				m.Timestamp = fixedNow.Add(time.Second).UnixMilli()
				w.sign(r, m)
			},
			wantErr: ErrFutureTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			tt.prepare(r)

			pk, err := v.Verify(r, ActionWithdrawFunds, project)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, w.pub, pk)
		})
	}
}

func TestVerifier_HeaderMode(t *testing.T) {
	w := newWallet(t)
	v := newTestVerifier(ModeHeader)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.Header.Set(HeaderPubkey, w.pub.String())

	pk, err := v.Verify(r, ActionCreateProject, ResourceNew)
	require.NoError(t, err)
	assert.Equal(t, w.pub, pk)
}

func TestVerifier_Require(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := newWallet(t)
	v := newTestVerifier(ModeSignature)

	router := gin.New()
	router.POST("/projects/:id/fund", v.Require(ActionFundTreasury, ProjectParam), func(c *gin.Context) {
		caller, ok := Caller(c)
		require.True(t, ok)
		c.String(http.StatusOK, caller.String())
	})

	t.Run("authorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/projects/abc/fund", nil)
		w.sign(req, NewMessage(ActionFundTreasury, "abc", w.pub.String(), fixedNow))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, w.pub.String(), rec.Body.String())
	})

	t.Run("signature for another project", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/projects/abc/fund", nil)
		w.sign(req, NewMessage(ActionFundTreasury, "xyz", w.pub.String(), fixedNow))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), ErrMessageMismatch.Error())
	})
}

func TestConfirm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := newWallet(t)
	v := newTestVerifier(ModeSignature)

	router := gin.New()
	router.POST("/projects/:id/fund", v.Require(ActionFundTreasury, ProjectParam), func(c *gin.Context) {
		if err := Confirm(c, map[string]string{"amount": c.Query("amount")}); err != nil {
			c.String(http.StatusUnauthorized, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})

	send := func(path string, msg Message) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		w.sign(req, msg)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	msg := NewMessage(ActionFundTreasury, "abc", w.pub.String(), fixedNow).WithData(map[string]string{"amount": "5"})

	rec := send("/projects/abc/fund?amount=6", msg)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrMessageMismatch.Error(), rec.Body.String())

	rec = send("/projects/abc/fund?amount=5", msg)
	assert.Equal(t, http.StatusOK, rec.Code, "a mismatch does not spend the signature")

	rec = send("/projects/abc/fund?amount=5", msg)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrReplayed.Error(), rec.Body.String())
}

func TestConfirm_HeaderMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := newWallet(t)
	v := newTestVerifier(ModeHeader)

	router := gin.New()
	router.POST("/fund", v.Require(ActionFundTreasury, ProjectParam), func(c *gin.Context) {
		require.NoError(t, Confirm(c, map[string]string{"amount": "1"}))
		c.Status(http.StatusNoContent)
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/fund", nil)
		req.Header.Set(HeaderPubkey, w.pub.String())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestCaller_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := Caller(c)
	assert.False(t, ok)
}

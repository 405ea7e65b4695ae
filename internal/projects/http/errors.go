package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/garden-backend/internal/auth"
	"github.com/GoSim-25-26J-441/garden-backend/internal/logging"
	"github.com/GoSim-25-26J-441/garden-backend/internal/projects/domain"
)

func statusFor(code domain.Code) int {
	switch code {
	case domain.CodeEmptyProjectName, domain.CodeNameTooLong, domain.CodeNoAdmins,
		domain.CodeTooManyAdmins, domain.CodeTooManyMembers, domain.CodeZeroAddress,
		domain.CodeDuplicateAddress, domain.CodeInvalidTaskCount, domain.CodeInvalidFundingAmount,
		domain.CodeCreatorNotInAdmins:
		return http.StatusBadRequest
	case domain.CodeUnauthorized, domain.CodeUnauthorizedWithdrawal:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists, domain.CodeConflict:
		return http.StatusConflict
	case domain.CodeWithdrawalExceedsBalance, domain.CodeInsufficientFunds, domain.CodeBalanceOverflow:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		logging.For(c.Request.Context(), h.log).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"ok": false, "error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msg})
}

// confirm enforces the signed operation arguments and writes the response when
// they do not hold.
func (h *Handler) confirm(c *gin.Context, data map[string]string) bool {
	err := auth.Confirm(c, data)
	switch {
	case err == nil:
		return true
	case auth.Rejected(err):
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": err.Error()})
	default:
		h.writeError(c, err)
	}
	return false
}

package domain

import "errors"

// Code is the machine-readable identifier of a failure.
type Code string

const (
	// Input shape
	CodeEmptyProjectName   Code = "EmptyProjectName"
	CodeNameTooLong        Code = "NameTooLong"
	CodeNoAdmins           Code = "NoAdmins"
	CodeTooManyAdmins      Code = "TooManyAdmins"
	CodeTooManyMembers     Code = "TooManyMembers"
	CodeZeroAddress        Code = "ZeroAddress"
	CodeDuplicateAddress   Code = "DuplicateAddress"
	CodeCreatorNotInAdmins Code = "CreatorNotInAdmins"

	// Authorization
	CodeUnauthorized           Code = "Unauthorized"
	CodeUnauthorizedWithdrawal Code = "UnauthorizedWithdrawal"

	// Bounds and arithmetic
	CodeInvalidTaskCount         Code = "InvalidTaskCount"
	CodeInvalidFundingAmount     Code = "InvalidFundingAmount"
	CodeWithdrawalExceedsBalance Code = "WithdrawalExceedsBalance"

	// Storage and funds pool
	CodeAlreadyExists     Code = "AlreadyExists"
	CodeNotFound          Code = "NotFound"
	CodeInsufficientFunds Code = "InsufficientFunds"
	CodeBalanceOverflow   Code = "BalanceOverflow"
	CodeConflict          Code = "Conflict"
)

// Error is a typed failure. Two errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// NewError creates an error with no cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches cause to a copy of the sentinel e.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	ErrEmptyProjectName   = NewError(CodeEmptyProjectName, "project name cannot be empty")
	ErrNameTooLong        = NewError(CodeNameTooLong, "project name exceeds maximum length of 50 characters")
	ErrNoAdmins           = NewError(CodeNoAdmins, "admin list cannot be empty")
	ErrTooManyAdmins      = NewError(CodeTooManyAdmins, "admin list exceeds maximum of 10 entries")
	ErrTooManyMembers     = NewError(CodeTooManyMembers, "member list exceeds maximum of 50 entries")
	ErrZeroAddress        = NewError(CodeZeroAddress, "zero address not allowed")
	ErrDuplicateAddress   = NewError(CodeDuplicateAddress, "duplicate addresses not allowed")
	ErrCreatorNotInAdmins = NewError(CodeCreatorNotInAdmins, "creator must be in admins list")

	ErrUnauthorized           = NewError(CodeUnauthorized, "unauthorized: only admins can perform this action")
	ErrUnauthorizedWithdrawal = NewError(CodeUnauthorizedWithdrawal, "only admins can withdraw funds")

	ErrInvalidTaskCount         = NewError(CodeInvalidTaskCount, "invalid task count: cannot exceed total tasks")
	ErrInvalidFundingAmount     = NewError(CodeInvalidFundingAmount, "invalid funding amount: must be greater than 0")
	ErrWithdrawalExceedsBalance = NewError(CodeWithdrawalExceedsBalance, "withdrawal amount exceeds available balance")

	ErrAlreadyExists     = NewError(CodeAlreadyExists, "project already exists")
	ErrNotFound          = NewError(CodeNotFound, "project not found")
	ErrInsufficientFunds = NewError(CodeInsufficientFunds, "insufficient funds for transfer")
	ErrBalanceOverflow   = NewError(CodeBalanceOverflow, "balance overflow")
	ErrConflict          = NewError(CodeConflict, "concurrent update conflict, retry the operation")
)

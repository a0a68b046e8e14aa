package household

import "errors"

var (
	// ErrEmptyAccountID is returned when the account id is empty.
	ErrEmptyAccountID = errors.New("household: empty account id")
	// ErrEmptyPrincipal is returned when a principal id is empty.
	ErrEmptyPrincipal = errors.New("household: empty principal")
	// ErrNotMember is returned when a principal is not an account member.
	ErrNotMember = errors.New("household: not a member")
	// ErrAlreadyMember is returned when adding a principal twice.
	ErrAlreadyMember = errors.New("household: already a member")
	// ErrNotAuthorized is returned when the caller lacks the required role.
	ErrNotAuthorized = errors.New("household: not authorized")
	// ErrCannotRemoveOwner is returned when removing the account owner.
	ErrCannotRemoveOwner = errors.New("household: cannot remove owner")
	// ErrCannotModifyOwnerRole is returned when changing the owner's roles.
	ErrCannotModifyOwnerRole = errors.New("household: cannot modify owner role")
	// ErrUnknownRole is returned for a role outside the recognized set.
	ErrUnknownRole = errors.New("household: unknown role")
	// ErrZeroAsset is returned when an asset id is the null identifier.
	ErrZeroAsset = errors.New("household: zero asset id")
	// ErrAssetExists is returned when adding a portfolio asset twice.
	ErrAssetExists = errors.New("household: asset already registered")
	// ErrInvalidIndex is returned for an out-of-bounds portfolio index.
	ErrInvalidIndex = errors.New("household: invalid portfolio index")
	// ErrNoChange is returned when a settlement update is a no-op.
	ErrNoChange = errors.New("household: settlement unchanged")
	// ErrInsufficientBalance is returned when the treasury cannot cover a debit.
	ErrInsufficientBalance = errors.New("household: insufficient balance")
	// ErrNegativeAmount is returned when a balance mutation is not positive.
	ErrNegativeAmount = errors.New("household: amount must be positive")
	// ErrNilAccount is returned when saving a nil account.
	ErrNilAccount = errors.New("household: nil account")
	// ErrAccountNotFound is returned when the account does not exist.
	ErrAccountNotFound = errors.New("household: account not found")
	// ErrAccountExists is returned when creating an account under a taken id.
	ErrAccountExists = errors.New("household: account already exists")
)

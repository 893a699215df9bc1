package users

import "errors"

var (
	// ErrUserNotFound means no active account matches the lookup.
	ErrUserNotFound = errors.New("users: user not found")

	// ErrNameMissing means a roster row for a new account has no
	// firstname or lastname.
	ErrNameMissing = errors.New("users: firstname and lastname are required for a new account")

	// ErrEmailMissing means neither the roster row nor the default-email
	// template yielded a usable address for a new account.
	ErrEmailMissing = errors.New("users: no usable email address")
)

package errors

import "errors"

var (
	// ErrSubscriptionNotFound is returned when no subscription matches the external id.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrCustomerNotFound is returned when no customer matches the external id.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrUserNotFound is returned when the users table has no such row.
	ErrUserNotFound = errors.New("user not found")
	// ErrSubscriptionNotOwned is returned when a user acts on someone else's subscription.
	ErrSubscriptionNotOwned = errors.New("subscription does not belong to user")
	// ErrOwnerUnresolved is returned when a creation event carries no resolvable user.
	ErrOwnerUnresolved = errors.New("subscription owner could not be resolved")
	// ErrMissingSubscriptionID is returned when an event payload has no subscription id.
	ErrMissingSubscriptionID = errors.New("event payload has no subscription id")
)

package confirmation

import "errors"

// ErrNotFound means the token was never issued, was cancelled, was replaced
// by a later Create for its session, or was evicted by the sweeper after
// its TTL.
var ErrNotFound = errors.New("confirmation: token not found")

// ErrAlreadyConsumed means the token was already redeemed once; every later
// Consume call for the same token fails this way until the entry is
// replaced by a later Create for its session or swept after its TTL.
var ErrAlreadyConsumed = errors.New("confirmation: token already consumed")

// ErrExpired means the token's TTL elapsed before it was consumed.
var ErrExpired = errors.New("confirmation: token expired")

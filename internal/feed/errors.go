// Package feed contains the feed synchronization and optimistic-interaction
// engine: the like ledger, the live-query synchronizer, the image upload
// coordinator and the post mutation service.
package feed

import "errors"

// Failure classes for the engine's remote interactions. All of them are
// caught and logged at the boundary where they occur; none crash the process
// and none roll back optimistic local state.
var (
	ErrRemoteWrite        = errors.New("remote write failed")
	ErrRemoteSubscription = errors.New("remote subscription failed")
	ErrUpload             = errors.New("image upload failed")
	ErrDelete             = errors.New("delete failed")
)

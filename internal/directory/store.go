package directory

import "context"

// Store is the recipient directory contract used by the lifecycle manager.
type Store interface {
	// ResolveSelfTrusted makes addr the single self entry of the directory,
	// merging any rows that carry either of its identifiers, and marks the
	// entry trusted. The entry's identity is always considered verified
	// because the account's own key material is held locally.
	ResolveSelfTrusted(ctx context.Context, addr Address) error
}

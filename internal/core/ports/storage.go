package ports

import "context"

// Durable storage keys.
const (
	KeyUserToken        = "token"
	KeyUsername         = "username"
	KeyAdminToken       = "adminToken"
	KeyStoreID          = "storeId"
	KeyRoomStatusUpdate = "roomStatusUpdate"
)

// KVStore is the durable key-value storage shared by every context of the
// application instance.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// StorageChange is delivered to peers when a key is written.
type StorageChange struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Origin string `json:"origin"`
}

// ChangeFeed notifies about writes made by other store instances. A store
// never notifies its own writes. Watch blocks until ctx is done.
type ChangeFeed interface {
	Watch(ctx context.Context, key string, fn func(StorageChange)) error
}

// CookieJar is reset when a credential scope is destroyed.
type CookieJar interface {
	Reset()
}

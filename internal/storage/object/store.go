package object

import "context"

// Store is the durable key/value object storage the session layer runs on.
// Keys are logical paths ("family_sessions/name/…"); implementations may
// namespace them further.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

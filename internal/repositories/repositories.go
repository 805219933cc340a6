package repositories

import (
	"fmt"

	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

var (
	_ session.Storage = (*KVRepository)(nil)
	_ session.Storage = (*RedisStorage)(nil)
)

// storageErr wraps a backend failure for op on key with [shared.ErrStorage].
func storageErr(op, key string, err error) error {
	return fmt.Errorf("%w: failed to %s %q: %v", shared.ErrStorage, op, key, err)
}

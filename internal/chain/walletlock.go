package chain

import (
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync"
)

// WalletLocker serializes every chain access sequence performed on behalf of
// one escrow wallet. Both requirements of the shared-wallet discipline hang
// off it: write ordering per signer, and the read-inventory-then-act critical
// section, which must cover the read too, not just the write.
type WalletLocker struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func NewWalletLocker() *WalletLocker {
	return &WalletLocker{locks: xsync.NewMapOf[*sync.Mutex]()}
}

// Lock blocks until the wallet's mutex is held and returns the unlock
// function. Addresses are compared case-insensitively.
func (l *WalletLocker) Lock(address string) func() {
	mutex, _ := l.locks.LoadOrStore(strings.ToLower(address), &sync.Mutex{})
	mutex.Lock()
	return mutex.Unlock
}

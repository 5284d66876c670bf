// Package guard forces test mode before any package under test can observe
// the environment. Import it for its side effect in packages whose tests
// must never boot the real runtime.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("LEDGERLINK_TEST_MODE") == "" {
			_ = os.Setenv("LEDGERLINK_TEST_MODE", "1")
		}
	})
}

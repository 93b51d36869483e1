// Package testing flips the process into test mode when imported. Test
// packages blank-import it so the composition roots skip real startup.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("PASARHUB_TEST_MODE") == "" {
			_ = os.Setenv("PASARHUB_TEST_MODE", "1")
		}
	})
}

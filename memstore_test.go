package ninjaauth_test

import (
	"testing"

	na "github.com/devsnb/ninja-authentication"
	"github.com/devsnb/ninja-authentication/stores/storetest"
)

func TestMemoryUserStore(t *testing.T) {
	storetest.RunUserStoreTests(t, func(t *testing.T) na.UserStore {
		return na.NewMemoryUserStore()
	})
}

package prometheus

import (
	"strings"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/store/memory"
)

func testEngineConfig() adminauth.Config {
	cfg := adminauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", 32))
	cfg.Audit.Enabled = false
	return cfg
}

func newStore() account.Store {
	return memory.New()
}

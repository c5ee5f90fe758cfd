package cli

import (
	"fmt"

	"github.com/ppiankov/agentgate/internal/client"
	"github.com/ppiankov/agentgate/internal/config"
)

// dialRemote connects to addr, or to the configured local server when addr
// is empty.
func dialRemote(addr string, cfg *config.Config) (*client.Client, error) {
	if addr == "" {
		port := cfg.Port
		if port == 0 {
			port = config.DefaultPort
		}
		addr = fmt.Sprintf("localhost:%d", port)
	}
	return client.New(addr)
}

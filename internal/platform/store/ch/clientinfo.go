package ch

import (
	"os"
	"strings"

	"cancioneiro/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// BuildClientInfo names this process in system.query_log: the app at its commit,
// the role it runs as (api, watchdog, ctl), the go version and the host
func BuildClientInfo(name, role string) clickhouse.ClientInfo {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "cancioneiro"
	}
	host, _ := os.Hostname()
	v := version.Info()
	return clickhouse.ClientInfo{Products: []struct{ Name, Version string }{
		{Name: name, Version: v.Commit},
		{Name: "role", Version: strings.TrimSpace(role)},
		{Name: "go", Version: v.Go},
		{Name: "host", Version: host},
	}}
}

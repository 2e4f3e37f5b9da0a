package ch

import (
	"os"
	"strings"

	"commitflow/internal/core/version"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClientInfo names this process in system.query_log. name is the product
// and tag the subcommand that opened the connection.
func ClientInfo(name, tag string) clickhouse.ClientInfo {
	host, _ := os.Hostname()
	bi := version.Info()

	ci := clickhouse.ClientInfo{}
	add := func(n, v string) {
		if v = strings.TrimSpace(v); v == "" {
			v = "unknown"
		}
		ci.Products = append(ci.Products, struct{ Name, Version string }{n, v})
	}
	add(name, bi.Version)
	add("cmd", tag)
	add("commit", bi.Commit)
	add("host", host)
	return ci
}

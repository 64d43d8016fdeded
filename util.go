package main

import (
	"net/url"
	"sort"

	"signal-core/pkg/config"
)

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

// redactDSN hides credentials in a postgres URL before it is logged.
func redactDSN(cfg *config.Config) string {
	dsn := cfg.DSN()
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

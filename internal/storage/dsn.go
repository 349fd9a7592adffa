package storage

import (
	"net/url"
	"strings"
)

// DSNInfo is the part of a connection descriptor that is safe to show.
type DSNInfo struct {
	Host     string `json:"db_host,omitempty"`
	Port     string `json:"db_port,omitempty"`
	Database string `json:"db_name,omitempty"`
}

// DescribeDSN extracts host, port and database name from a networked
// descriptor. Credentials are dropped. Descriptors that do not parse, or that
// select the embedded engine, yield an empty DSNInfo.
func DescribeDSN(dsn string) DSNInfo {
	if !IsNetworked(dsn) {
		return DSNInfo{}
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return DSNInfo{}
	}
	return DSNInfo{
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
}

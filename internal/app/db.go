package app

import (
	"net/url"
	"strings"
)

const preparedBinaryResultParam = "disable_prepared_binary_result"

// normalizeDBURL appends disable_prepared_binary_result=yes for pools that
// cannot serve binary-format prepared results. A value already present in
// the URL wins over the toggle.
func normalizeDBURL(raw string, disablePreparedBinary bool) string {
	if !disablePreparedBinary {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	if q.Get(preparedBinaryResultParam) != "" {
		return raw
	}
	q.Set(preparedBinaryResultParam, "yes")
	u.RawQuery = q.Encode()
	return u.String()
}

// dbNameFromURL pulls the database name out of a connection string for the
// db.name span attribute. Both postgres:// URLs and key=value DSNs appear in
// deployment environments.
func dbNameFromURL(raw string) string {
	raw = strings.TrimSpace(raw)

	if u, err := url.Parse(raw); err == nil && u.Scheme != "" {
		if name := strings.Trim(u.Path, "/ "); name != "" {
			return name
		}
	}

	for _, field := range strings.Fields(raw) {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key != "dbname" {
			continue
		}
		if name := strings.Trim(value, `"'`); name != "" {
			return name
		}
	}

	return ""
}

const maxTracedQueryLen = 512

// formatDBQueryForTrace flattens multi-line SQL onto one line and clips
// statements too long for a span attribute.
func formatDBQueryForTrace(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}

	flat := strings.Join(fields, " ")
	if len(flat) > maxTracedQueryLen {
		flat = flat[:maxTracedQueryLen] + "..."
	}
	return flat
}

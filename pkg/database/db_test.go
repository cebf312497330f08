package database

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'UTC'", quoteLiteral("UTC"))
	assert.Equal(t, `'it\'s'`, quoteLiteral("it's"))
	assert.Equal(t, `'a\\b'`, quoteLiteral(`a\b`))
}

func TestWithSessionParams(t *testing.T) {
	base := "postgres://u:p@localhost:5432/db?sslmode=disable"
	assert.Equal(t, base, withSessionParams(Config{DSN: base}))

	got := withSessionParams(Config{DSN: base, TimeZone: "Asia/Shanghai", ClientEncoding: "UTF8"})
	assert.Equal(t, "postgres://u:p@localhost:5432/db?client_encoding=UTF8&sslmode=disable&timezone=Asia%2FShanghai", got)

	got = withSessionParams(Config{DSN: "host=localhost dbname=db", TimeZone: "UTC"})
	assert.Equal(t, "host=localhost dbname=db timezone='UTC'", got)
}

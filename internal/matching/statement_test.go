package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExact(t *testing.T) {
	m := Exact("START TRANSACTION")

	c, ok := m.Match("START TRANSACTION")
	require.True(t, ok)
	assert.Equal(t, []string{"START TRANSACTION"}, c.Groups)

	_, ok = m.Match("start transaction")
	assert.False(t, ok)
	_, ok = m.Match("START TRANSACTION ")
	assert.False(t, ok)

	assert.Equal(t, `exact "START TRANSACTION"`, m.String())
	assert.Equal(t, "START TRANSACTION", m.Literal())
}

func TestPattern(t *testing.T) {
	tests := []struct {
		name          string
		expr          string
		caseSensitive bool
		stmt          string
		want          bool
	}{
		{"full match", "SELECT .*", true, "SELECT 1", true},
		{"anchored start", "SELECT .*", true, "/* x */ SELECT 1", false},
		{"anchored end", "SELECT 1", true, "SELECT 1 FROM dual", false},
		{"explicit anchors still work", "^SELECT .*", true, "SELECT @@port", true},
		{"alternation is grouped", "COMMIT|ROLLBACK", true, "ROLLBACK", true},
		{"alternation anchored", "COMMIT|ROLLBACK", true, "COMMIT; ROLLBACK", false},
		{"case sensitive", "select .*", true, "SELECT 1", false},
		{"case insensitive", "select .*", false, "SELECT 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Pattern(tt.expr, tt.caseSensitive)
			require.NoError(t, err)
			_, ok := m.Match(tt.stmt)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPattern_Captures(t *testing.T) {
	m := MustPattern(`SELECT (?P<col>\w+) FROM (\w+)`, true)

	c, ok := m.Match("SELECT port FROM members")
	require.True(t, ok)
	assert.Equal(t, []string{"SELECT port FROM members", "port", "members"}, c.Groups)
	assert.Equal(t, map[string]string{"col": "port"}, c.Named)
}

func TestPattern_Invalid(t *testing.T) {
	_, err := Pattern("SELECT (", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")

	_, err = Pattern("", true)
	assert.Error(t, err)

	assert.Panics(t, func() { MustPattern("[", true) })
}

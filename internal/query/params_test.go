package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yardb/internal/yarerr"
)

func TestParseTopSkip(t *testing.T) {
	v := url.Values{"$top": {"5"}, "$skip": {"2"}}
	p, err := Parse(v)
	require.NoError(t, err)
	require.NotNil(t, p.Top)
	require.NotNil(t, p.Skip)
	assert.Equal(t, 5, *p.Top)
	assert.Equal(t, 2, *p.Skip)
}

func TestParseNegativeTopIsBadRequest(t *testing.T) {
	v := url.Values{"$top": {"-1"}}
	_, err := Parse(v)
	require.Error(t, err)
	var yerr *yarerr.Error
	require.ErrorAs(t, err, &yerr)
	assert.Equal(t, yarerr.BadRequest, yerr.Kind)
}

func TestParseOrderBy(t *testing.T) {
	v := url.Values{"$orderby": {"age desc"}}
	p, err := Parse(v)
	require.NoError(t, err)
	require.NotNil(t, p.OrderBy)
	assert.Equal(t, "age", p.OrderBy.Field)
	assert.True(t, p.OrderBy.Desc)
}

func TestParseOrderByInvalidDirection(t *testing.T) {
	v := url.Values{"$orderby": {"age sideways"}}
	_, err := Parse(v)
	require.Error(t, err)
}

func TestParseSelect(t *testing.T) {
	v := url.Values{"$select": {"name, age"}}
	p, err := Parse(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, p.Select)
}

func TestParseCount(t *testing.T) {
	v := url.Values{"$count": {"true"}}
	p, err := Parse(v)
	require.NoError(t, err)
	assert.True(t, p.Count)
}

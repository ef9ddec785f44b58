package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProduct(t *testing.T) {
	for _, s := range []string{"SF", "sf", "Sf"} {
		p, err := ParseProduct(s)
		require.NoError(t, err)
		assert.Equal(t, ProductSF, p)
	}

	p, err := ParseProduct("rw")
	require.NoError(t, err)
	assert.Equal(t, ProductRW, p)

	_, err = ParseProduct("xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown product")
}

func TestProductConfig(t *testing.T) {
	sf := ProductSF.Config()
	assert.Equal(t, 900, sf.GridRows)
	assert.Equal(t, 900, sf.GridCols)
	assert.Equal(t, "mm/d", sf.Unit)
	assert.Equal(t, 72, sf.HistoryWindowHours)
	assert.Equal(t, 2006, sf.MinYear)
	assert.Equal(t, WarningLongDuration, sf.Family)
	assert.Contains(t, sf.RecentPath, "daily/radolan/recent")
	assert.Contains(t, sf.HistoricalPath, "daily/radolan/historical")

	rw := ProductRW.Config()
	assert.Equal(t, "mm/h", rw.Unit)
	assert.Equal(t, 12, rw.HistoryWindowHours)
	assert.Equal(t, 2005, rw.MinYear)
	assert.Equal(t, WarningShortDuration, rw.Family)
	assert.Contains(t, rw.RecentPath, "hourly/radolan/recent")
}

func TestProductString(t *testing.T) {
	assert.Equal(t, "SF", ProductSF.String())
	assert.Equal(t, "RW", ProductRW.String())
}

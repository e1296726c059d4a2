package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrequencyTableObserve(t *testing.T) {
	table := NewFrequencyTable()
	for _, page := range [][]FormatLabel{{"pdf"}, {"pdf"}, {"jpeg"}} {
		table.ObserveAll(page)
	}

	assert.Equal(t, map[FormatLabel]int{"pdf": 2, "jpeg": 1}, table.Map())
	assert.Equal(t, []FormatLabel{"pdf", "jpeg"}, table.Labels())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, 3, table.Total())
	assert.Equal(t, 0, table.Count("png"))
}

func TestFrequencyTableZeroValue(t *testing.T) {
	var table FrequencyTable
	table.Observe("")

	assert.Equal(t, 1, table.Count(""))
	assert.Equal(t, []FormatLabel{""}, table.Labels())
}

func TestFrequencyTableMerge(t *testing.T) {
	a := NewFrequencyTable()
	a.ObserveAll([]FormatLabel{"pdf", "csv"})
	b := NewFrequencyTable()
	b.ObserveAll([]FormatLabel{"netcdf", "pdf", "pdf"})

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, []FormatLabel{"pdf", "csv", "netcdf"}, a.Labels())
	assert.Equal(t, 3, a.Count("pdf"))
	assert.Equal(t, 1, a.Count("netcdf"))
	assert.Equal(t, 5, a.Total())
}

func TestFrequencyTableLabelsIsCopy(t *testing.T) {
	table := NewFrequencyTable()
	table.Observe("pdf")

	labels := table.Labels()
	labels[0] = "changed"

	assert.Equal(t, []FormatLabel{"pdf"}, table.Labels())
}

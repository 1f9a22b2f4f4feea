package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePage(t *testing.T) {
	cases := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, ChannelHistoryLimit},
		{-3, -1, 1, ChannelHistoryLimit},
		{1, 10, 1, 10},
		{5, ChannelHistoryLimit, 5, ChannelHistoryLimit},
		{2, ChannelHistoryLimit + 1, 2, ChannelHistoryLimit},
	}
	for _, tc := range cases {
		page, limit := NormalizePage(tc.page, tc.limit)
		assert.Equal(t, tc.wantPage, page, "page for (%d,%d)", tc.page, tc.limit)
		assert.Equal(t, tc.wantLimit, limit, "limit for (%d,%d)", tc.page, tc.limit)
	}
}

func TestPageBoundsCountsFromNewest(t *testing.T) {
	// History of 5, pages of 2: page 1 holds the two newest entries.
	start, end := PageBounds(5, 1, 2)
	assert.Equal(t, 3, start)
	assert.Equal(t, 5, end)

	start, end = PageBounds(5, 2, 2)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	// The oldest page may be short.
	start, end = PageBounds(5, 3, 2)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1, end)

	// Past the end is empty.
	start, end = PageBounds(5, 4, 2)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)

	start, end = PageBounds(0, 1, 50)
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

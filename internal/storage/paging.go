package storage

// NormalizePage clamps page/limit for channel history: page floors at 1,
// limit defaults to ChannelHistoryLimit and is clamped to [1, ChannelHistoryLimit].
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > ChannelHistoryLimit {
		limit = ChannelHistoryLimit
	}
	return page, limit
}

// PageBounds converts (page, limit) into [start, end) offsets into an
// append-ordered history of length total, counting pages from the newest
// message. The resulting slice is already in chronological order.
func PageBounds(total, page, limit int) (int, int) {
	end := total - (page-1)*limit
	if end <= 0 {
		return 0, 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	return start, end
}

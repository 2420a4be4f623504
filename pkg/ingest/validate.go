package ingest

// FilterResult partitions normalized rows into accepted and rejected.
type FilterResult struct {
	// Accepted keeps the input order.
	Accepted []NormalizedRow
	Rejected int
	// ByReason counts rejections per status, for diagnostics logging only.
	ByReason map[RowStatus]int
}

// Filter keeps rows whose date, description and amount all normalized.
func Filter(rows []NormalizedRow) FilterResult {
	res := FilterResult{
		Accepted: make([]NormalizedRow, 0, len(rows)),
		ByReason: make(map[RowStatus]int),
	}

	for _, row := range rows {
		if row.Status != RowOK {
			res.Rejected++
			res.ByReason[row.Status]++
			continue
		}
		res.Accepted = append(res.Accepted, row)
	}
	return res
}

package domain

// BlockRange is a contiguous inclusive block range.
type BlockRange struct {
	From int64
	To   int64
}

// ScanGap records a sub-range that remained unscannable after backoff and
// range-halving were exhausted. Gaps are reported, never silently dropped.
type ScanGap struct {
	Range  BlockRange
	Reason string
}

// ScanCursor is the persisted resumption state of scanning one chain:
// the highest fully scanned block plus the list of known gaps. Resumption
// is a pure function of (cursor, new range).
type ScanCursor struct {
	ChainID          int64
	LastScannedBlock int64
	Gaps             []ScanGap
}

// NextRange returns the sub-range of target still to scan given the cursor.
// ok is false when target is already fully covered.
func (c *ScanCursor) NextRange(target BlockRange) (BlockRange, bool) {
	from := target.From
	if c.LastScannedBlock >= from {
		from = c.LastScannedBlock + 1
	}
	if from > target.To {
		return BlockRange{}, false
	}
	return BlockRange{From: from, To: target.To}, true
}

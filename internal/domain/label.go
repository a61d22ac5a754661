package domain

// Category classifies what a labeled address is. Closed enum so downstream
// classification can exhaustively switch on it.
type Category string

const (
	CategoryExchange         Category = "exchange"
	CategoryBridge           Category = "bridge"
	CategoryDexRouter        Category = "dex_router"
	CategoryToken            Category = "token"
	CategoryProtocolContract Category = "protocol_contract"
	CategoryBurn             Category = "burn"
	CategoryUnknown          Category = "unknown"
)

// ValidCategory reports whether c is a member of the closed enum.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryExchange, CategoryBridge, CategoryDexRouter, CategoryToken,
		CategoryProtocolContract, CategoryBurn, CategoryUnknown:
		return true
	}
	return false
}

// Confidence is the attribution confidence of a label. Never free text.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidConfidence reports whether c is one of the three enumerated levels.
func ValidConfidence(c Confidence) bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Label is one curated address attribution. Immutable snapshot input to a
// run; never mutated mid-run.
type Label struct {
	Address     string
	Category    Category
	Confidence  Confidence
	Source      string
	SourceURL   string
	RetrievedAt string
	Notes       string
}

// UnknownLabel is returned on registry misses. A miss is expected and never
// an error.
func UnknownLabel(addr string) Label {
	return Label{
		Address:    addr,
		Category:   CategoryUnknown,
		Confidence: ConfidenceLow,
	}
}

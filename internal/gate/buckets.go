package gate

// StaticClassifier is a table-driven correlation-bucket classifier.
// Deliberately coarse; finer taxonomies implement contracts.SectorClassifier.
type StaticClassifier struct {
	buckets map[string]string
	fallback string
}

// NewStaticClassifier builds a classifier from a symbol → bucket table
func NewStaticClassifier(table map[string]string, fallback string) *StaticClassifier {
	if fallback == "" {
		fallback = "other"
	}
	return &StaticClassifier{buckets: table, fallback: fallback}
}

// Bucket returns the correlation bucket for a symbol
func (c *StaticClassifier) Bucket(symbol string) string {
	if bucket, ok := c.buckets[symbol]; ok {
		return bucket
	}
	return c.fallback
}

// DefaultClassifier returns the built-in coarse sector grouping
func DefaultClassifier() *StaticClassifier {
	return NewStaticClassifier(map[string]string{
		"AAPL": "tech",
		"MSFT": "tech",
		"GOOG": "tech",
		"NVDA": "tech",
		"AMD":  "tech",
		"META": "tech",
		"AMZN": "tech",
		"TSLA": "auto",
		"F":    "auto",
		"GM":   "auto",
		"JPM":  "finance",
		"BAC":  "finance",
		"GS":   "finance",
		"XOM":  "energy",
		"CVX":  "energy",
		"BTC":  "crypto",
		"ETH":  "crypto",
	}, "other")
}

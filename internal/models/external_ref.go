package models

// ExternalRef identifies an entity in a third-party system. The pair is the
// deduplication key for reconciliation: a booking carries at most one
// ExternalRef per source.
type ExternalRef struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

// IsZero reports whether the reference is unset.
func (r ExternalRef) IsZero() bool {
	return r.Source == "" && r.ID == ""
}

func (r ExternalRef) String() string {
	return r.Source + ":" + r.ID
}

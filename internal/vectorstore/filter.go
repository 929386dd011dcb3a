package vectorstore

import "strconv"

// Well-known filter keys mapping to a record's typed provenance fields.
// Any other key is matched against Record.Metadata.
const (
	FilterSourceDocID = "source_doc_id"
	FilterPageNumber  = "page_number"
	FilterModality    = "modality"
	FilterPosition    = "position"
)

// Filter is a set of exact-match key/value conditions over record
// provenance and metadata. A record matches only if every condition holds.
// A nil or empty filter matches all records.
type Filter map[string]string

// Matches reports whether the record satisfies every filter condition.
func (f Filter) Matches(r Record) bool {
	for key, want := range f {
		got, ok := recordValue(r, key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// recordValue resolves a filter key against the record's typed fields first,
// then its metadata tags.
func recordValue(r Record, key string) (string, bool) {
	switch key {
	case FilterSourceDocID:
		return r.SourceDocID, true
	case FilterPageNumber:
		return strconv.Itoa(r.PageNumber), true
	case FilterModality:
		return string(r.Modality), true
	case FilterPosition:
		return strconv.Itoa(r.Position), true
	}
	v, ok := r.Metadata[key]
	return v, ok
}

package query

import "jasondb/internal/document"

// Entry is a selected document together with its position in the
// collection it was selected from.
type Entry struct {
	Index int
	Doc   *document.Map
}

// Select returns the documents of docs that match filter.
//
// With an empty filter it returns the first document when many is false and
// every position of docs otherwise. A non-empty filter is evaluated against
// each document in order; when many is false the scan stops at the first hit.
// A filtered selection returns a document held at several positions once.
// docs is not modified.
func Select(docs []*document.Map, filter *document.Map, many bool) []Entry {
	if filter.Len() == 0 {
		if !many {
			if len(docs) == 0 {
				return nil
			}
			return []Entry{{Index: 0, Doc: docs[0]}}
		}
		out := make([]Entry, len(docs))
		for i, d := range docs {
			out[i] = Entry{Index: i, Doc: d}
		}
		return out
	}

	var out []Entry
	seen := make(map[*document.Map]struct{})
	for i, d := range docs {
		if !Match(d, filter) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, Entry{Index: i, Doc: d})
		if !many {
			break
		}
	}
	return out
}

// Docs strips the positions from a selection.
func Docs(entries []Entry) []*document.Map {
	out := make([]*document.Map, len(entries))
	for i, e := range entries {
		out[i] = e.Doc
	}
	return out
}

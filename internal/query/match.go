package query

import "jasondb/internal/document"

// Match reports whether doc satisfies filter.
//
// Filter keys are checked in order. A scalar filter value must be strictly
// equal to the document's value at that key. A mapping filter value switches
// evaluation to the nested document and its result is returned as is, so any
// keys after the first mapping value are not consulted. An empty mapping
// value only requires the document's value to be truthy.
func Match(doc *document.Map, filter *document.Map) bool {
	return match(document.ObjectValue(doc), filter, true)
}

func match(doc document.Value, filter *document.Map, matched bool) bool {
	for _, key := range filter.Keys() {
		want := filter.Get(key)
		got := doc.Field(key)

		if want.IsMapping() {
			if want.Map().Len() == 0 && !got.Truthy() {
				matched = false
			}
			return match(got, want.Map(), matched)
		}

		if !doc.Truthy() || !got.StrictEqual(want) {
			matched = false
		}
	}
	return matched
}

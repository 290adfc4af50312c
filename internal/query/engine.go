package query

import (
	"fmt"
	"slices"

	"jasondb/internal/document"
)

// Operation is the kind of work Run performs on the selection.
type Operation int

const (
	OpFind Operation = iota
	OpUpdate
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpFind:
		return "find"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// Result is the outcome of Run. Updated and Deleted list documents in the
// reverse of selection order.
type Result struct {
	Collection []*document.Map
	Filtered   []Entry
	Updated    []*document.Map
	Deleted    []*document.Map
}

// Run selects the documents matching filter and applies op to them.
//
// OpUpdate merges data into each selected document in place. OpDelete
// returns a new collection slice without the selected documents; the
// documents themselves are shared with docs.
func Run(op Operation, docs []*document.Map, filter, data *document.Map, many bool) Result {
	res := Result{Collection: docs, Filtered: Select(docs, filter, many)}

	switch op {
	case OpUpdate:
		for i := len(res.Filtered) - 1; i >= 0; i-- {
			e := res.Filtered[i]
			if e.Index >= len(docs) || docs[e.Index] != e.Doc {
				continue
			}
			res.Updated = append(res.Updated, Merge(e.Doc, data))
		}
	case OpDelete:
		coll := slices.Clone(docs)
		for i := len(res.Filtered) - 1; i >= 0; i-- {
			e := res.Filtered[i]
			if e.Index >= len(coll) || coll[e.Index] != e.Doc {
				continue
			}
			coll = slices.Delete(coll, e.Index, e.Index+1)
			res.Deleted = append(res.Deleted, e.Doc)
		}
		res.Collection = coll
	}
	return res
}

// Find runs OpFind.
func Find(docs []*document.Map, filter *document.Map, many bool) Result {
	return Run(OpFind, docs, filter, nil, many)
}

// Update runs OpUpdate.
func Update(docs []*document.Map, filter, data *document.Map, many bool) Result {
	return Run(OpUpdate, docs, filter, data, many)
}

// Delete runs OpDelete.
func Delete(docs []*document.Map, filter *document.Map, many bool) Result {
	return Run(OpDelete, docs, filter, nil, many)
}

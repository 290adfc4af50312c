package query

import "jasondb/internal/document"

// Merge folds sources into target from left to right and returns target.
//
// Scalar and array source values replace whatever the target holds. A
// mapping source value is merged recursively into the target's value at the
// same key; a falsy target value is replaced by an empty mapping first, while
// a truthy non-mapping target value is kept and the source value is dropped.
func Merge(target *document.Map, sources ...*document.Map) *document.Map {
	if target == nil {
		return nil
	}
	for _, src := range sources {
		mergeInto(target, src)
	}
	return target
}

func mergeInto(target, src *document.Map) {
	src.Range(func(key string, v document.Value) bool {
		if !v.IsMapping() {
			target.Set(key, v.Clone())
			return true
		}
		cur := target.Get(key)
		if !cur.Truthy() {
			cur = document.ObjectValue(document.NewMap())
			target.Set(key, cur)
		}
		if cur.IsMapping() {
			mergeInto(cur.Map(), v.Map())
		}
		return true
	})
}

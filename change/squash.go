package change

// Squash consolidates a change list so that at most one change exists per
// (selector, type) pair. Later changes override earlier ones, except:
//
//   - style/styleRules/class/attribute changes in merge mode compose with
//     the earlier value, later keys winning on conflict;
//   - move changes keep the earliest recorded original target/position, so
//     a chain of moves remains reversible to the true original placement.
//
// Order of first occurrence is preserved.
func Squash(list []Change) []Change {
	out := make([]Change, 0, len(list))
	index := make(map[Key]int, len(list))

	for _, c := range list {
		k := KeyOf(c)
		at, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, c)
			continue
		}
		out[at] = mergeChange(out[at], c)
	}
	return out
}

func mergeChange(prev, next Change) Change {
	switch next.Type {
	case TypeStyle:
		if next.Mode == ModeMerge {
			next.Styles = mergeStringMap(prev.Styles, next.Styles)
		}
	case TypeStyleRules:
		if next.Mode == ModeMerge {
			merged := make(map[string]map[string]string, len(prev.StyleRules)+len(next.StyleRules))
			for state, props := range prev.StyleRules {
				merged[state] = mergeStringMap(nil, props)
			}
			for state, props := range next.StyleRules {
				merged[state] = mergeStringMap(merged[state], props)
			}
			next.StyleRules = merged
		}
	case TypeClass:
		if next.Mode == ModeMerge {
			next.Class = mergeClass(prev.Class, next.Class)
		}
	case TypeAttribute:
		if next.Mode == ModeMerge {
			next.Attributes = mergeStringMap(prev.Attributes, next.Attributes)
		}
	case TypeMove:
		// The first move recorded where the element truly came from.
		if prev.OriginalTargetSelector != "" {
			next.OriginalTargetSelector = prev.OriginalTargetSelector
			next.OriginalPosition = prev.OriginalPosition
		}
	}
	return next
}

func mergeStringMap(prev, next map[string]string) map[string]string {
	merged := make(map[string]string, len(prev)+len(next))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range next {
		merged[k] = v
	}
	return merged
}

// mergeClass folds a later add/remove pair into an earlier one. A class
// added later cancels an earlier removal and vice versa.
func mergeClass(prev, next ClassValue) ClassValue {
	add := make([]string, 0, len(prev.Add)+len(next.Add))
	remove := make([]string, 0, len(prev.Remove)+len(next.Remove))

	add = append(add, prev.Add...)
	remove = append(remove, prev.Remove...)

	for _, cls := range next.Add {
		remove = deleteString(remove, cls)
		if !containsString(add, cls) {
			add = append(add, cls)
		}
	}
	for _, cls := range next.Remove {
		add = deleteString(add, cls)
		if !containsString(remove, cls) {
			remove = append(remove, cls)
		}
	}
	return ClassValue{Add: add, Remove: remove}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func deleteString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}

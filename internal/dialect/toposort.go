package dialect

import "sort"

// topoSortViews orders views so that a view's view-dependencies always
// precede it. Cycles are broken by repeatedly picking the lexically
// smallest remaining view; the view forced out of the cycle has CycleBroken set
// on the returned ViewInfo so callers can surface it rather than silently
// proceeding (spec.md's "not silently hidden" invariant).
func topoSortViews(views []ViewInfo) []ViewInfo {
	byName := make(map[string]ViewInfo, len(views))
	names := make(map[string]bool, len(views))
	for _, v := range views {
		byName[v.Name] = v
		names[v.Name] = true
	}

	deps := make(map[string]map[string]bool, len(views))
	for _, v := range views {
		d := map[string]bool{}
		for _, dep := range v.Dependencies {
			if dep.Kind == "view" && names[dep.Name] {
				d[dep.Name] = true
			}
		}
		deps[v.Name] = d
	}

	remaining := make(map[string]bool, len(views))
	for n := range names {
		remaining[n] = true
	}

	var ordered []ViewInfo
	for len(remaining) > 0 {
		var ready []string
		for n := range remaining {
			blocked := false
			for d := range deps[n] {
				if remaining[d] {
					blocked = true
					break
				}
			}
			if !blocked {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			// Circular dependency: break by taking any remaining name,
			// chosen deterministically as the lexically smallest.
			var rem []string
			for n := range remaining {
				rem = append(rem, n)
			}
			sort.Strings(rem)
			broken := byName[rem[0]]
			broken.CycleBroken = true
			byName[rem[0]] = broken
			ready = []string{rem[0]}
		}
		sort.Strings(ready)
		for _, n := range ready {
			delete(remaining, n)
			ordered = append(ordered, byName[n])
		}
	}
	return ordered
}

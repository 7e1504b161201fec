package utils

// ContainsID reports whether the id set contains the given id.
func ContainsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// RemoveID returns a copy of the id set without the given id.
// The input slice is never modified.
func RemoveID(ids []string, id string) []string {
	result := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			result = append(result, existing)
		}
	}
	return result
}

// ToggleID returns a copy of the id set with the given id added if absent
// or removed if present.
func ToggleID(ids []string, id string) []string {
	if ContainsID(ids, id) {
		return RemoveID(ids, id)
	}

	result := make([]string, 0, len(ids)+1)
	result = append(result, ids...)
	return append(result, id)
}

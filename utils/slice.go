package utils

// UniqueStrings removes duplicate values from a slice while keeping first-seen order.
func UniqueStrings(slice []string) []string {
	keys := make(map[string]bool, len(slice))
	list := make([]string, 0, len(slice))
	for _, entry := range slice {
		if !keys[entry] {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// HasDuplicates reports whether any value appears more than once.
func HasDuplicates(slice []string) bool {
	return len(UniqueStrings(slice)) != len(slice)
}

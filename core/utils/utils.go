package utils

import "sort"

func RemoveDuplicates[T comparable](sliceList []T) []T {
	allKeys := make(map[T]bool)
	list := []T{}
	for _, item := range sliceList {
		if _, value := allKeys[item]; !value {
			allKeys[item] = true
			list = append(list, item)
		}
	}
	return list
}

// FindDuplicate returns the first value that appears more than once, if any.
func FindDuplicate[T comparable](sliceList []T) (T, bool) {
	seen := make(map[T]bool)
	for _, item := range sliceList {
		if seen[item] {
			return item, true
		}
		seen[item] = true
	}
	var zero T
	return zero, false
}

// SortedKeys returns the keys of a string-keyed map in sorted order
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

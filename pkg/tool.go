package pkg

import "sort"

// Contains check source have target
func Contains(slice []string, val string) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

// AppendIfNotExists append val only when it is missing
func AppendIfNotExists(list []string, val string) []string {
	if Contains(list, val) {
		return list
	}
	return append(list, val)
}

// Remove returns list without val; the input is not modified
func Remove(list []string, val string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != val {
			out = append(out, v)
		}
	}
	return out
}

// SortedUnique returns a sorted copy of list without duplicates or empty values
func SortedUnique(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

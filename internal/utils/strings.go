package utils

import "strings"

// ContainsFold reports whether item is in list, ignoring ASCII case.
// Used for HTTP header names.
func ContainsFold(list []string, item string) bool {
	for _, s := range list {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

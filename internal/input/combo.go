package input

import "strings"

// ParseCombo splits a key combination such as "Ctrl+Alt+Delete" into its
// members. A literal plus key is written as a trailing "++" ("Ctrl++").
func ParseCombo(combo string) []string {
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return nil
	}

	plus := strings.HasSuffix(combo, "++")
	if plus {
		combo = strings.TrimSuffix(combo, "++")
	}

	var parts []string
	for _, p := range strings.Split(combo, "+") {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	if plus {
		parts = append(parts, "+")
	}
	return parts
}

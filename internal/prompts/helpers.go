package prompts

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

// joinCriteria renders the stored acceptance-criteria JSON as a readable
// comma-joined list, or the explicit placeholder when absent or malformed.
func joinCriteria(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return noCriteriaPlaceholder
	}
	var criteria []string
	if err := json.Unmarshal(raw, &criteria); err != nil || len(criteria) == 0 {
		return noCriteriaPlaceholder
	}
	return strings.Join(criteria, ", ")
}

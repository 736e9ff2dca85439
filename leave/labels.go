package leave

// Dictionary types used for label lookups.
const (
	DictLeaveType      = "leave_type"
	DictLeaveStatus    = "leave_status"
	DictApprovalStatus = "approval_status"
)

// LabelSource resolves display labels from a data dictionary. Labels are
// cosmetic; every operation works with no source configured.
type LabelSource interface {
	Label(dictType, code string) (string, bool)
}

// StaticLabels is a dictionary held in memory, keyed by type then code.
type StaticLabels map[string]map[string]string

func (s StaticLabels) Label(dictType, code string) (string, bool) {
	codes, ok := s[dictType]
	if !ok {
		return "", false
	}
	label, ok := codes[code]
	return label, ok
}

// RequestLabels decorates one request for display.
type RequestLabels struct {
	Type   string
	Status string
}

// LabelRequest falls back to the raw codes when src is nil or has no entry.
func LabelRequest(src LabelSource, r Request) RequestLabels {
	return RequestLabels{
		Type:   lookup(src, DictLeaveType, string(r.Type)),
		Status: lookup(src, DictLeaveStatus, string(r.Status)),
	}
}

func LabelApproval(src LabelSource, rec ApprovalRecord) string {
	return lookup(src, DictApprovalStatus, string(rec.Status))
}

func lookup(src LabelSource, dictType, code string) string {
	if src == nil {
		return code
	}
	if label, ok := src.Label(dictType, code); ok {
		return label
	}
	return code
}

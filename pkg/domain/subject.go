package domain

import (
	"fmt"
	"sort"
	"sync"
)

// SubjectType is a stable string tag naming a business entity kind. Audit
// events reference their subject by (SubjectType, ID) without enforcing
// referential integrity, so the tag must stay consistent across the system.
// Register every tag once at startup; ad hoc strings fragment audit trails.
type SubjectType string

// Entity kinds known to the registry platform.
const (
	SubjectFarmer         SubjectType = "farmer"
	SubjectHousehold      SubjectType = "household"
	SubjectPlot           SubjectType = "plot"
	SubjectFormSubmission SubjectType = "form_submission"
	SubjectUser           SubjectType = "user"
	SubjectImportJob      SubjectType = "import_job"
	SubjectConfiguration  SubjectType = "configuration"
)

// String returns the stable tag.
func (t SubjectType) String() string {
	return string(t)
}

// IsNil returns true if the subject type is empty.
func (t SubjectType) IsNil() bool {
	return t == ""
}

var (
	subjectMu sync.RWMutex
	subjects  = map[SubjectType]struct{}{
		SubjectFarmer:         {},
		SubjectHousehold:      {},
		SubjectPlot:           {},
		SubjectFormSubmission: {},
		SubjectUser:           {},
		SubjectImportJob:      {},
		SubjectConfiguration:  {},
	}
)

// RegisterSubjectType adds a tag to the registry. Registering an existing tag
// is a no-op so modules can declare their subjects independently.
func RegisterSubjectType(t SubjectType) {
	if t.IsNil() {
		return
	}
	subjectMu.Lock()
	defer subjectMu.Unlock()
	subjects[t] = struct{}{}
}

// ParseSubjectType validates a tag against the registry.
// Returns an error for unregistered tags to catch typos at the boundary.
func ParseSubjectType(s string) (SubjectType, error) {
	t := SubjectType(s)
	subjectMu.RLock()
	_, ok := subjects[t]
	subjectMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown subject type: %s", s)
	}
	return t, nil
}

// RegisteredSubjectTypes returns all registered tags in lexical order.
func RegisteredSubjectTypes() []SubjectType {
	subjectMu.RLock()
	defer subjectMu.RUnlock()
	out := make([]SubjectType, 0, len(subjects))
	for t := range subjects {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SubjectRef identifies what an audit event is about. The reference is weak:
// the subject may have been deleted by the time the event is read, and
// resolution to a live entity is never required for correctness.
type SubjectRef struct {
	Type SubjectType
	ID   string
}

// IsNil returns true when neither part of the reference is set.
func (r SubjectRef) IsNil() bool {
	return r.Type.IsNil() && r.ID == ""
}

func (r SubjectRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

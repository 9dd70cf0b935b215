package syllabus

type Viewer interface {
	CanView(level AccessLevel) bool
}

// Capabilities is the usual Viewer: what the current user is to the course.
type Capabilities struct {
	LoggedIn bool
	Enrolled bool
	Manager  bool
}

var _ Viewer = Capabilities{}

func (c Capabilities) CanView(level AccessLevel) bool {
	switch level {
	case AccessPublic:
		return true
	case AccessLoggedIn:
		return c.LoggedIn
	case AccessPrivate:
		return c.Enrolled || c.Manager
	}
	return false
}

type Reason int

const (
	ReasonShown Reason = iota
	ReasonRequiresLogin
	ReasonRequiresEnrollment
	ReasonNoneUploaded
)

func (r Reason) String() string {
	switch r {
	case ReasonShown:
		return "shown"
	case ReasonRequiresLogin:
		return "requires login"
	case ReasonRequiresEnrollment:
		return "requires enrollment"
	case ReasonNoneUploaded:
		return "none uploaded"
	}
	return "unknown"
}

// Record is nil unless Reason is ReasonShown.
type Choice struct {
	Record *Record
	Reason Reason
}

type selectionRule struct {
	Name  string
	Apply func(records Records, viewer Viewer) (Choice, bool)
}

// First match wins. The private record comes first so that enrolled viewers
// get the full syllabus over the public one.
var selectionRules = []selectionRule{
	{
		Name: "viewable private",
		Apply: func(records Records, viewer Viewer) (Choice, bool) {
			if records.Private != nil && viewer.CanView(AccessPrivate) {
				return Choice{Record: records.Private, Reason: ReasonShown}, true
			}
			return Choice{}, false
		},
	},
	{
		Name: "viewable public",
		Apply: func(records Records, viewer Viewer) (Choice, bool) {
			if records.Public != nil && viewer.CanView(records.Public.AccessLevel) {
				return Choice{Record: records.Public, Reason: ReasonShown}, true
			}
			return Choice{}, false
		},
	},
	{
		Name: "hidden public",
		Apply: func(records Records, viewer Viewer) (Choice, bool) {
			if records.Public != nil {
				return Choice{Reason: ReasonRequiresLogin}, true
			}
			return Choice{}, false
		},
	},
	{
		Name: "hidden private",
		Apply: func(records Records, viewer Viewer) (Choice, bool) {
			if records.Private != nil {
				return Choice{Reason: ReasonRequiresEnrollment}, true
			}
			return Choice{}, false
		},
	},
}

// Picks the record to show on the syllabus page, or explains why there is none.
func SelectForDisplay(records Records, viewer Viewer) Choice {
	for _, rule := range selectionRules {
		if choice, ok := rule.Apply(records, viewer); ok {
			return choice
		}
	}
	return Choice{Reason: ReasonNoneUploaded}
}

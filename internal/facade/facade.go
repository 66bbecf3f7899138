package facade

import "github.com/MrSnakeDoc/relay/internal/catalog"

// Set bundles the four façades built over one shared Deps.
type Set struct {
	Auth    *Auth
	Profile *Profile
	OTP     *OTP
	Courses *Courses
}

// NewSet wires every façade against the catalogue. It panics if a required
// service is missing, which is a startup misconfiguration.
func NewSet(deps Deps, cat *catalog.Catalog) *Set {
	return &Set{
		Auth:    NewAuth(deps, cat.MustLookup(catalog.Auth)),
		Profile: NewProfile(deps, cat.MustLookup(catalog.UserProfile)),
		OTP:     NewOTP(deps, cat.MustLookup(catalog.OTP)),
		Courses: NewCourses(deps, cat.MustLookup(catalog.Course)),
	}
}

package auth

// Resource classes gated by the policy evaluator.
type Resource string

const (
	ResourceCategory Resource = "category"
	ResourceGenre    Resource = "genre"
	ResourceTitle    Resource = "title"
	ResourceReview   Resource = "review"
	ResourceComment  Resource = "comment"
	ResourceUser     Resource = "user"
	ResourceProfile  Resource = "profile"
)

// Actions a caller may attempt against a resource class.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Caller identifies the requester for policy evaluation. The zero value is
// the anonymous caller. Evaluation is stateless: the role here comes from the
// validated credential, never from a fresh store lookup.
type Caller struct {
	ID       string
	Username string
	Role     UserRole
}

// IsAnonymous reports whether no credential was presented.
func (c Caller) IsAnonymous() bool {
	return c.Role == ""
}

// CallerFromClaims builds a Caller from validated token claims.
func CallerFromClaims(claims AuthClaims) Caller {
	if claims == nil {
		return Caller{}
	}
	return Caller{
		ID:       claims.UserID(),
		Username: claims.Username(),
		Role:     claims.Role(),
	}
}

// rule is a single policy-table cell. owner is the ID of the record's author
// when ownership matters, empty otherwise.
type rule func(c Caller, owner string) bool

func anyone(Caller, string) bool { return true }

func nobody(Caller, string) bool { return false }

func authenticated(c Caller, _ string) bool { return !c.IsAnonymous() }

func adminOnly(c Caller, _ string) bool { return c.Role == RoleAdmin }

func adminOrSelf(c Caller, owner string) bool {
	return c.Role == RoleAdmin || (owner != "" && c.ID == owner)
}

func selfOnly(c Caller, _ string) bool { return !c.IsAnonymous() }

// authorOrModerator grants the record's author plus the moderation roles.
// Writes here are not a plain ordering comparison: moderators may moderate
// other people's reviews yet still cannot touch catalog or user records.
func authorOrModerator(c Caller, owner string) bool {
	if c.IsAnonymous() {
		return false
	}
	if owner != "" && c.ID == owner {
		return true
	}
	return RoleAtLeast(c.Role, RoleModerator)
}

type policy struct {
	read   rule
	create rule
	update rule
	delete rule
}

// policyTable is the single authoritative permission source. Handlers never
// carry their own role flags; the guard middleware consults this table.
var policyTable = map[Resource]policy{
	ResourceCategory: {read: anyone, create: adminOnly, update: adminOnly, delete: adminOnly},
	ResourceGenre:    {read: anyone, create: adminOnly, update: adminOnly, delete: adminOnly},
	ResourceTitle:    {read: anyone, create: adminOnly, update: adminOnly, delete: adminOnly},
	ResourceReview:   {read: anyone, create: authenticated, update: authorOrModerator, delete: authorOrModerator},
	ResourceComment:  {read: anyone, create: authenticated, update: authorOrModerator, delete: authorOrModerator},
	ResourceUser:     {read: adminOrSelf, create: adminOnly, update: adminOnly, delete: adminOnly},
	ResourceProfile:  {read: selfOnly, create: nobody, update: selfOnly, delete: nobody},
}

// IsAllowed decides whether the caller may perform the action on the resource
// class. owner is the author of the specific record when relevant. Unknown
// resources and actions are denied.
func IsAllowed(c Caller, action Action, resource Resource, owner string) bool {
	p, ok := policyTable[resource]
	if !ok {
		return false
	}

	var r rule
	switch action {
	case ActionRead:
		r = p.read
	case ActionCreate:
		r = p.create
	case ActionUpdate:
		r = p.update
	case ActionDelete:
		r = p.delete
	}

	if r == nil {
		return false
	}

	return r(c, owner)
}

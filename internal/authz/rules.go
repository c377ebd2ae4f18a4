package authz

import "strings"

// Permission function codes checked against per-user grants.
const (
	PermViewProfile       = "VIEW_PROFILE"
	PermCreatePermissions = "CREATE_PERMISSIONS"
	PermCreateUser        = "CREATE_USER"
	PermEditUser          = "EDIT_USER"
	PermViewTeams         = "VIEW_TEAMS"
	PermCreateTeam        = "CREATE_TEAM"
	PermViewTasks         = "VIEW_TASKS"
	PermAttendanceMobile  = "ATTENDANCE_MOBILE"
	PermAttendance        = "ATTENDANCE"
	PermViewDashboard     = "VIEW_DASHBOARD"
)

// AnyMethod matches every HTTP method in a Rule.
const AnyMethod = "*"

// Rule maps a method and path pattern to the permission code the caller must
// hold. Patterns use `*` for a single path segment and a trailing `**` for
// zero or more segments.
type Rule struct {
	Method   string
	Pattern  string
	Required string
}

// DefaultRules is the route permission table, evaluated top to bottom with
// first match winning. The order is load-bearing: /api/users/me must be
// declared before the /api/users/** method rules, and the timeclock QR rule
// before the timeclock catch-all.
var DefaultRules = []Rule{
	{"POST", "/api/auth/logout", PermViewProfile},
	{AnyMethod, "/api/permissions/**", PermCreatePermissions},
	{AnyMethod, "/api/permission-templates/**", PermCreatePermissions},
	{"GET", "/api/users/me", PermViewProfile},
	{"POST", "/api/users/**", PermCreateUser},
	{"PUT", "/api/users/**", PermEditUser},
	{"DELETE", "/api/users/**", PermEditUser},
	{"GET", "/api/users/**", PermEditUser},
	{"GET", "/api/teams/**", PermViewTeams},
	{"POST", "/api/teams/**", PermCreateTeam},
	{"PUT", "/api/teams/**", PermCreateTeam},
	{"DELETE", "/api/teams/**", PermCreateTeam},
	{AnyMethod, "/api/tasks/**", PermViewTasks},
	{"GET", "/api/timeclock/qr-code", PermAttendanceMobile},
	{AnyMethod, "/api/timeclock/**", PermAttendance},
	{AnyMethod, "/api/faces/**", PermAttendance},
	{AnyMethod, "/api/finance/**", PermViewDashboard},
	{"GET", "/api/hello", PermViewDashboard},
}

// RequiredPermission resolves (method, path) against the rules in declared
// order. The second return is false when no rule matches.
func RequiredPermission(rules []Rule, method, path string) (string, bool) {
	for _, rule := range rules {
		if rule.Method != AnyMethod && rule.Method != method {
			continue
		}
		if matchPattern(rule.Pattern, path) {
			return rule.Required, true
		}
	}
	return "", false
}

// matchPattern matches ant-style path patterns: `*` matches exactly one
// segment, a trailing `**` matches zero or more segments. Patterns without
// wildcards must match exactly.
func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}
	patSegs := splitPath(pattern)
	pathSegs := splitPath(path)

	for i, seg := range patSegs {
		if seg == "**" {
			// Trailing ** swallows the rest, including nothing.
			return i == len(patSegs)-1
		}
		if i >= len(pathSegs) {
			return false
		}
		if seg != "*" && seg != pathSegs[i] {
			return false
		}
	}
	return len(patSegs) == len(pathSegs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

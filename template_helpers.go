package accounts

import (
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns a map of helper functions and data that can be used
// with the view engine's global data for authentication-related template
// functionality.
//
// In templates, you can then use:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_at_least":      isAtLeast,

		// Role constants for easy template access
		"roles": map[string]string{
			"customer": string(RoleCustomer),
			"staff":    string(RoleStaff),
			"admin":    string(RoleAdmin),
		},
	}
}

// TemplateHelpersWithUser returns template helpers with a specific account set
// as current_user.
func TemplateHelpersWithUser(account *Account) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = account
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with user data extracted
// from the router context, as stored by the JWT middleware.
func TemplateHelpersWithRouter(ctx router.Context, userKey string) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers()

	if user := ctx.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	return helpers
}

// MergeTemplateData merges auth template helpers into the given view context.
// Request data wins over helper defaults.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	merged := router.ViewContext{}

	for key, value := range TemplateHelpersWithRouter(ctx, TemplateUserKey) {
		merged[key] = value
	}

	for key, value := range data {
		merged[key] = value
	}

	return merged
}

// GetTemplateUser is a convenience function to extract user data from the
// router context for template usage.
func GetTemplateUser(ctx router.Context, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := ctx.Locals(userKey)
	return user, user != nil
}

// isAuthenticated checks if the provided user object is not nil
func isAuthenticated(user any) bool {
	if user == nil {
		return false
	}

	switch u := user.(type) {
	case *Account:
		return u != nil
	case Account:
		return true
	case AuthClaims:
		return u != nil && u.AccountID() != ""
	case map[string]any:
		return len(u) > 0
	default:
		return false
	}
}

// hasRole checks if the user has the specified role
func hasRole(user any, role string) bool {
	switch u := user.(type) {
	case *Account:
		if u == nil {
			return false
		}
		return u.Role == AccountRole(role)
	case Account:
		return u.Role == AccountRole(role)
	case AuthClaims:
		if u == nil {
			return false
		}
		return u.HasRole(role)
	case map[string]any:
		if userRole, exists := u["role"]; exists {
			if roleStr, ok := userRole.(string); ok {
				return roleStr == role
			}
		}
		return false
	default:
		return false
	}
}

// isAtLeast checks if the user's role is at least the minimum required level
func isAtLeast(user any, minRole string) bool {
	switch u := user.(type) {
	case *Account:
		if u == nil {
			return false
		}
		return RoleIsAtLeast(u.Role, AccountRole(minRole))
	case Account:
		return RoleIsAtLeast(u.Role, AccountRole(minRole))
	case AuthClaims:
		if u == nil {
			return false
		}
		return u.IsAtLeast(minRole)
	case map[string]any:
		if userRole, exists := u["role"]; exists {
			if roleStr, ok := userRole.(string); ok {
				return RoleIsAtLeast(AccountRole(roleStr), AccountRole(minRole))
			}
		}
		return false
	default:
		return false
	}
}

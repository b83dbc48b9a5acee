package rbac

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"test:view",
		"test:take",
		"question:view",
		"result:view-own",
		"progress:view-own",
		"user:change_password",
	},
	"teacher": {
		"test:create",
		"test:view",
		"test:deactivate",
		"question:create",
		"question:view",
		"result:view-all",
		"analytics:view",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}

package domain

// Permission codes.
const (
	PermissionSLARead       = "sla:read"
	PermissionAnalyticsRead = "analytics:read"
	PermissionTicketsAssign = "tickets:assign"
)

// Role names.
const (
	RoleViewer = "viewer"
	RoleAgent  = "agent"
	RoleAdmin  = "admin"
)

// RolePermissions is the baseline grant table seeded at startup.
// Agents are the roster the balancer assigns to.
var RolePermissions = map[string][]string{
	RoleViewer: {PermissionSLARead},
	RoleAgent:  {PermissionSLARead, PermissionAnalyticsRead},
	RoleAdmin:  {PermissionSLARead, PermissionAnalyticsRead, PermissionTicketsAssign},
}

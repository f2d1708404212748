package auth

import "github.com/beamline/beamline/internal/models"

// Permission represents a specific action that can be performed on a resource
type Permission string

const (
	// Project permissions
	ProjectsRead   Permission = "projects.read"
	ProjectsCreate Permission = "projects.create"
	ProjectsUpdate Permission = "projects.update"
	ProjectsDelete Permission = "projects.delete"

	// Phase permissions
	PhasesManage     Permission = "phases.manage"
	PhasesTransition Permission = "phases.transition"
	PhasesApprove    Permission = "phases.approve"

	// Site artifact permissions (documents, photos, checklists, voice notes)
	ArtifactsRead   Permission = "artifacts.read"
	ArtifactsCreate Permission = "artifacts.create"
	ArtifactsUpdate Permission = "artifacts.update"
	ArtifactsDelete Permission = "artifacts.delete"

	// Punch list permissions
	PunchListUpdate Permission = "punchlist.update"
	PunchListClose  Permission = "punchlist.close"

	// Billing permissions
	WaiversManage  Permission = "waivers.manage"
	PayAppsSubmit  Permission = "payapps.submit"
	PayAppsApprove Permission = "payapps.approve"
	BidsManage     Permission = "bids.manage"

	// Reporting and integrations
	ReportsGenerate  Permission = "reports.generate"
	QuickBooksManage Permission = "quickbooks.manage"
	APIKeysManage    Permission = "apikeys.manage"

	// Administration
	UsersManage Permission = "users.manage"
	SystemAdmin Permission = "system.admin"
)

// rolePermissions maps each role to the set of permissions it grants.
var rolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {
		ProjectsRead, ProjectsCreate, ProjectsUpdate, ProjectsDelete,
		PhasesManage, PhasesTransition, PhasesApprove,
		ArtifactsRead, ArtifactsCreate, ArtifactsUpdate, ArtifactsDelete,
		PunchListUpdate, PunchListClose,
		WaiversManage, PayAppsSubmit, PayAppsApprove, BidsManage,
		ReportsGenerate, QuickBooksManage, APIKeysManage,
		UsersManage, SystemAdmin,
	},
	models.RoleManager: {
		ProjectsRead, ProjectsCreate, ProjectsUpdate,
		PhasesManage, PhasesTransition, PhasesApprove,
		ArtifactsRead, ArtifactsCreate, ArtifactsUpdate, ArtifactsDelete,
		PunchListUpdate, PunchListClose,
		WaiversManage, PayAppsSubmit, PayAppsApprove, BidsManage,
		ReportsGenerate, QuickBooksManage,
	},
	models.RoleStaff: {
		ProjectsRead,
		PhasesTransition,
		ArtifactsRead, ArtifactsCreate, ArtifactsUpdate,
		PunchListUpdate,
		PayAppsSubmit,
		ReportsGenerate,
	},
	models.RoleSubcontractor: {
		ProjectsRead,
		ArtifactsRead, ArtifactsCreate,
		PunchListUpdate,
	},
	models.RoleViewer: {
		ProjectsRead,
		ArtifactsRead,
	},
}

// HasPermission checks whether the role grants a specific permission.
func HasPermission(role models.Role, permission Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Can reports whether the identity holds the permission. Service keys act
// as a MANAGER minus user, key, and system administration; they never
// exceed what a manager could do.
func (id *Identity) Can(permission Permission) bool {
	if id == nil {
		return false
	}
	if id.ServiceKey {
		switch permission {
		case UsersManage, APIKeysManage, SystemAdmin:
			return false
		}
		return HasPermission(models.RoleManager, permission)
	}
	return HasPermission(id.Role, permission)
}

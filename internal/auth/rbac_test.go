package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beamline/beamline/internal/models"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role models.Role
		perm Permission
		want bool
	}{
		{models.RoleAdmin, ProjectsDelete, true},
		{models.RoleAdmin, SystemAdmin, true},
		{models.RoleManager, ProjectsDelete, false},
		{models.RoleManager, PayAppsApprove, true},
		{models.RoleManager, UsersManage, false},
		{models.RoleStaff, PhasesTransition, true},
		{models.RoleStaff, PhasesApprove, false},
		{models.RoleStaff, PunchListClose, false},
		{models.RoleSubcontractor, PunchListUpdate, true},
		{models.RoleSubcontractor, ArtifactsDelete, false},
		{models.RoleViewer, ProjectsRead, true},
		{models.RoleViewer, ProjectsCreate, false},
		{models.RoleViewer, ArtifactsCreate, false},
	}

	for _, tt := range tests {
		got := HasPermission(tt.role, tt.perm)
		assert.Equal(t, tt.want, got, "%s / %s", tt.role, tt.perm)
	}
}

func TestIdentityCan(t *testing.T) {
	assert.False(t, (*Identity)(nil).Can(ProjectsRead), "nil identity has no permissions")

	manager := &Identity{Role: models.RoleManager}
	assert.True(t, manager.Can(WaiversManage))
	assert.False(t, manager.Can(ProjectsDelete), "only admins delete projects")
}

func TestServiceKeyIdentity(t *testing.T) {
	key := &Identity{Role: models.RoleManager, ServiceKey: true}

	assert.True(t, key.Can(ProjectsCreate))
	assert.True(t, key.Can(PayAppsApprove))

	// Service keys must never manage credentials or users.
	assert.False(t, key.Can(UsersManage))
	assert.False(t, key.Can(APIKeysManage))
	assert.False(t, key.Can(SystemAdmin))

	// And they stay inside the manager envelope: no project deletion.
	assert.False(t, key.Can(ProjectsDelete), "service key must not exceed manager")
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeamRoleRank(t *testing.T) {
	ordered := []TeamRole{RoleReadonly, RoleGuest, RoleMember, RoleAdmin, RoleOwner}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(),
			"%s 应高于 %s", ordered[i], ordered[i-1])
	}

	assert.Equal(t, -1, TeamRole("超管").Rank())
	assert.False(t, TeamRole("超管").Valid())
	assert.True(t, RoleMember.Valid())
}

func TestTeamRoleAtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, RoleReadonly.AtLeast(RoleGuest))

	// 未知角色不参与比较
	assert.False(t, TeamRole("超管").AtLeast(RoleReadonly))
	assert.False(t, RoleOwner.AtLeast(TeamRole("超管")))
}

func TestDefaultCapabilities(t *testing.T) {
	for _, role := range []TeamRole{RoleOwner, RoleAdmin} {
		caps := DefaultCapabilities(role)
		assert.True(t, caps.CanView && caps.CanEdit && caps.CanShare && caps.CanManageMembers, "%s", role)
	}

	member := DefaultCapabilities(RoleMember)
	assert.True(t, member.CanView)
	assert.True(t, member.CanEdit)
	assert.True(t, member.CanShare)
	assert.False(t, member.CanManageMembers)

	guest := DefaultCapabilities(RoleGuest)
	assert.True(t, guest.CanView)
	assert.False(t, guest.CanEdit)
	assert.False(t, guest.CanShare)

	readonly := DefaultCapabilities(RoleReadonly)
	assert.Equal(t, Capabilities{CanView: true}, readonly)

	// 未知角色回落到只读
	assert.Equal(t, Capabilities{CanView: true}, DefaultCapabilities(TeamRole("超管")))
}

func TestMemberCapabilitiesRoundtrip(t *testing.T) {
	m := &TeamMember{}
	caps := Capabilities{CanView: true, CanShare: true}
	m.ApplyCapabilities(caps)
	assert.Equal(t, caps, m.Capabilities())
}

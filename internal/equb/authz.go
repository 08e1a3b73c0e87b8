package equb

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/equb/internal/models"
	"github.com/mmynk/equb/internal/storage"
)

// isGroupAdmin is the single capability check for every admin-only operation.
func isGroupAdmin(m *models.GroupMember) bool {
	return m != nil && m.Status == models.MemberActive && m.Role == models.RoleAdmin
}

// isGroupMember allows any membership record, whatever its role or status.
func isGroupMember(m *models.GroupMember) bool {
	return m != nil
}

// authorize loads the requester's membership and checks it against allowed.
func (m *Manager) authorize(ctx context.Context, groupID, requester, action string, allowed func(*models.GroupMember) bool) (*models.GroupMember, error) {
	if requester == "" {
		return nil, fmt.Errorf("%w: requester required to %s", ErrUnauthorized, action)
	}

	member, err := m.groups.GetMember(ctx, groupID, requester)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s is not a member of this group", ErrUnauthorized, requester)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	if !allowed(member) {
		return nil, fmt.Errorf("%w: only admins can %s", ErrUnauthorized, action)
	}
	return member, nil
}

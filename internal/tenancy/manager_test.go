package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financeplanner/internal/apperr"
	"financeplanner/internal/authz"
	"financeplanner/internal/tenant"
	"financeplanner/internal/user"
)

var membershipCols = []string{"id", "tenant_id", "user_id", "role", "created_at", "updated_at"}

// stubUsers resolves identities from a fixed table.
type stubUsers map[string]*user.User

func (s stubUsers) Resolve(_ context.Context, authUserID string) (*user.User, error) {
	if u, ok := s[authUserID]; ok {
		return u, nil
	}
	return nil, user.ErrInvalidAuthUserID
}

func setupManagerTest(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := stubUsers{
		"auth|dave": {ID: 4, AuthUserID: "auth|dave"},
		"auth|erin": {ID: 5, AuthUserID: "auth|erin"},
	}
	return NewManager(db, users), mock
}

func actingAs(userID int64, role tenant.Role) *authz.Context {
	return &authz.Context{
		User:   &user.User{ID: userID, AuthUserID: "auth|actor"},
		Tenant: &tenant.Tenant{ID: 1, Name: "Household"},
		Role:   role,
	}
}

func expectMembership(mock sqlmock.Sqlmock, userID int64, role tenant.Role) {
	now := time.Now()
	mock.ExpectQuery(`FROM tenant_memberships\s+WHERE tenant_id = \$1 AND user_id = \$2`).
		WithArgs(int64(1), userID).
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(userID*10), int64(1), userID, string(role), now, now))
}

func expectNoMembership(mock sqlmock.Sqlmock, userID int64) {
	mock.ExpectQuery(`FROM tenant_memberships\s+WHERE tenant_id = \$1 AND user_id = \$2`).
		WithArgs(int64(1), userID).
		WillReturnRows(sqlmock.NewRows(membershipCols))
}

func TestManager_GetCurrent(t *testing.T) {
	m, mock := setupManagerTest(t)
	ac := actingAs(1, tenant.RoleViewer)

	assert.Same(t, ac.Tenant, m.GetCurrent(ac))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Create(t *testing.T) {
	m, mock := setupManagerTest(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tenants`).
		WithArgs("Household").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow(int64(7), "Household", now, now))
	mock.ExpectQuery(`INSERT INTO tenant_memberships`).
		WithArgs(int64(7), int64(4), "owner").
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(1), int64(7), int64(4), "owner", now, now))
	mock.ExpectCommit()

	got, err := m.Create(context.Background(), &user.User{ID: 4}, "  Household ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, tenant.RoleOwner, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Create_RollsBackWithoutOwner(t *testing.T) {
	m, mock := setupManagerTest(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO tenants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow(int64(7), "Household", now, now))
	mock.ExpectQuery(`INSERT INTO tenant_memberships`).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := m.Create(context.Background(), &user.User{ID: 4}, "Household")
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Create_InvalidName(t *testing.T) {
	m, mock := setupManagerTest(t)

	_, err := m.Create(context.Background(), &user.User{ID: 4}, "   ")
	assert.ErrorIs(t, err, tenant.ErrInvalidName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_UpdateName(t *testing.T) {
	t.Run("owner renames", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		now := time.Now()

		mock.ExpectQuery(`UPDATE tenants`).
			WithArgs(int64(1), "Family").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at", "updated_at"}).AddRow(int64(1), "Family", now, now))

		got, err := m.UpdateName(context.Background(), actingAs(1, tenant.RoleOwner), "Family")
		require.NoError(t, err)
		assert.Equal(t, "Family", got.Name)
	})

	for _, role := range []tenant.Role{tenant.RoleAdmin, tenant.RoleMember, tenant.RoleViewer} {
		t.Run(string(role)+" is forbidden", func(t *testing.T) {
			m, mock := setupManagerTest(t)

			_, err := m.UpdateName(context.Background(), actingAs(1, role), "Family")
			assert.ErrorIs(t, err, ErrOwnerRequired)
			assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestManager_Delete(t *testing.T) {
	m, mock := setupManagerTest(t)

	assert.ErrorIs(t, m.Delete(context.Background(), actingAs(1, tenant.RoleAdmin)), ErrOwnerRequired)

	mock.ExpectExec(`DELETE FROM tenants WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, m.Delete(context.Background(), actingAs(1, tenant.RoleOwner)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_ListMembers(t *testing.T) {
	m, mock := setupManagerTest(t)
	now := time.Now()

	mock.ExpectQuery(`JOIN users u`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(append(membershipCols, "auth_user_id")).
			AddRow(int64(1), int64(1), int64(1), "owner", now, now, "auth|actor"))

	members, err := m.ListMembers(context.Background(), actingAs(2, tenant.RoleViewer))
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "auth|actor", members[0].AuthUserID)
}

func TestManager_Invite(t *testing.T) {
	t.Run("defaults to member", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		now := time.Now()

		expectNoMembership(mock, 4)
		mock.ExpectQuery(`INSERT INTO tenant_memberships`).
			WithArgs(int64(1), int64(4), "member").
			WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(9), int64(1), int64(4), "member", now, now))

		got, err := m.Invite(context.Background(), actingAs(1, tenant.RoleAdmin), "auth|dave", "")
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleMember, got.Role)
		assert.Equal(t, "auth|dave", got.AuthUserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("role name is case insensitive", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		now := time.Now()

		expectNoMembership(mock, 4)
		mock.ExpectQuery(`INSERT INTO tenant_memberships`).
			WithArgs(int64(1), int64(4), "viewer").
			WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(9), int64(1), int64(4), "viewer", now, now))

		got, err := m.Invite(context.Background(), actingAs(1, tenant.RoleAdmin), "auth|dave", tenant.Role(" Viewer "))
		require.NoError(t, err)
		assert.Equal(t, tenant.RoleViewer, got.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member cannot invite", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleMember), "auth|dave", tenant.RoleViewer)
		assert.ErrorIs(t, err, ErrAdminRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already a member", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		expectMembership(mock, 4, tenant.RoleViewer)

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleOwner), "auth|dave", tenant.RoleAdmin)
		assert.ErrorIs(t, err, ErrAlreadyMember)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	})

	t.Run("admin cannot invite an owner", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		expectNoMembership(mock, 4)

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleAdmin), "auth|dave", tenant.RoleOwner)
		assert.ErrorIs(t, err, ErrInviteOwner)
		assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner cannot add a second owner", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		expectNoMembership(mock, 4)

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleOwner), "auth|dave", tenant.RoleOwner)
		assert.ErrorIs(t, err, ErrSingleOwner)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid role", func(t *testing.T) {
		m, _ := setupManagerTest(t)

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleOwner), "auth|dave", tenant.Role("guest"))
		assert.ErrorIs(t, err, tenant.ErrInvalidRole)
	})

	t.Run("racing insert surfaces as conflict", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		expectNoMembership(mock, 5)
		mock.ExpectQuery(`INSERT INTO tenant_memberships`).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleOwner), "auth|erin", tenant.RoleMember)
		assert.ErrorIs(t, err, ErrDuplicateMembership)
		assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	})
}

func TestManager_UpdateMemberRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   *authz.Context
		target  int64
		current tenant.Role // empty means no membership
		newRole tenant.Role
		wantErr error
	}{
		{"admin cannot change roles", actingAs(2, tenant.RoleAdmin), 4, "", tenant.RoleViewer, ErrOwnerRequired},
		{"target missing", actingAs(1, tenant.RoleOwner), 4, "", tenant.RoleViewer, ErrMemberNotFound},
		{"own role checked before owner role", actingAs(1, tenant.RoleOwner), 1, tenant.RoleOwner, tenant.RoleAdmin, ErrCannotChangeOwn},
		{"promotion to owner", actingAs(1, tenant.RoleOwner), 4, tenant.RoleMember, tenant.RoleOwner, ErrSingleOwner},
		{"invalid role", actingAs(1, tenant.RoleOwner), 4, "", tenant.Role("root"), tenant.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, mock := setupManagerTest(t)

			if tt.actor.IsOwner() && tt.newRole.Valid() {
				if tt.current == "" {
					expectNoMembership(mock, tt.target)
				} else {
					expectMembership(mock, tt.target, tt.current)
				}
			}

			_, err := m.UpdateMemberRole(context.Background(), tt.actor, tt.target, tt.newRole)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Rows created before the single-owner index existed may hold a second owner.
func TestManager_UpdateMemberRole_OwnerTarget(t *testing.T) {
	m, mock := setupManagerTest(t)

	expectMembership(mock, 3, tenant.RoleOwner)

	_, err := m.UpdateMemberRole(context.Background(), actingAs(1, tenant.RoleOwner), 3, tenant.RoleAdmin)
	assert.ErrorIs(t, err, ErrCannotChangeOwner)
}

func TestManager_UpdateMemberRole_Success(t *testing.T) {
	m, mock := setupManagerTest(t)
	now := time.Now()

	expectMembership(mock, 4, tenant.RoleMember)
	mock.ExpectQuery(`UPDATE tenant_memberships`).
		WithArgs(int64(1), int64(4), "admin").
		WillReturnRows(sqlmock.NewRows(membershipCols).AddRow(int64(40), int64(1), int64(4), "admin", now, now))

	got, err := m.UpdateMemberRole(context.Background(), actingAs(1, tenant.RoleOwner), 4, tenant.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, tenant.RoleAdmin, got.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_RemoveMember(t *testing.T) {
	t.Run("viewer cannot remove", func(t *testing.T) {
		m, mock := setupManagerTest(t)

		_, err := m.RemoveMember(context.Background(), actingAs(2, tenant.RoleViewer), 4)
		assert.ErrorIs(t, err, ErrAdminRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("target missing", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		expectNoMembership(mock, 4)

		_, err := m.RemoveMember(context.Background(), actingAs(2, tenant.RoleAdmin), 4)
		assert.ErrorIs(t, err, ErrMemberNotFound)
		assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	})

	t.Run("self", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		expectMembership(mock, 2, tenant.RoleAdmin)

		_, err := m.RemoveMember(context.Background(), actingAs(2, tenant.RoleAdmin), 2)
		assert.ErrorIs(t, err, ErrCannotRemoveSelf)
	})

	t.Run("owner", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		expectMembership(mock, 1, tenant.RoleOwner)

		_, err := m.RemoveMember(context.Background(), actingAs(2, tenant.RoleAdmin), 1)
		assert.ErrorIs(t, err, ErrCannotRemoveOwner)
	})

	t.Run("admin removes member", func(t *testing.T) {
		m, mock := setupManagerTest(t)
		expectMembership(mock, 4, tenant.RoleMember)
		mock.ExpectExec(`DELETE FROM tenant_memberships`).
			WithArgs(int64(1), int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := m.RemoveMember(context.Background(), actingAs(2, tenant.RoleAdmin), 4)
		require.NoError(t, err)
		assert.Equal(t, int64(4), got.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestManager_Invite_ResolverFailure(t *testing.T) {
	m, _ := setupManagerTest(t)

	_, err := m.Invite(context.Background(), actingAs(1, tenant.RoleOwner), "auth|nobody", tenant.RoleViewer)
	assert.True(t, errors.Is(err, user.ErrInvalidAuthUserID))
	assert.Equal(t, apperr.BadRequest, apperr.KindOf(err))
}

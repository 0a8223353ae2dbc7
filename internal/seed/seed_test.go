package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
	"github.com/rusl-cricket/attendance/internal/store/memory"
)

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	opts := DefaultOptions()
	opts.BcryptCost = bcrypt.MinCost

	res, err := Run(ctx, ledger, opts, nil)
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	assert.Equal(t, 4, res.StudentsCreated)

	res, err = Run(ctx, ledger, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	require.NoError(t, ledger.View(ctx, func(r store.Reader) error {
		n, err := r.CountStudents(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		admin, err := r.UserByEmail(ctx, AdminEmail)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, admin.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")))

		user, err := r.UserByEmail(ctx, StudentEmail)
		require.NoError(t, err)
		linked, err := r.StudentByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "TG/2021/001", linked.RegNo)
		return nil
	}))
}

func TestRunKeepsExistingRoster(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	require.NoError(t, ledger.Update(ctx, func(tx store.Tx) error {
		return tx.CreateStudent(ctx, &model.Student{RegNo: "X/1", Name: "Existing"})
	}))

	res, err := Run(ctx, ledger, Options{AdminPassword: "a", StudentPassword: "s", BcryptCost: bcrypt.MinCost}, nil)
	require.NoError(t, err)
	assert.True(t, res.AdminCreated)
	assert.Zero(t, res.StudentsCreated)
}

func TestRunReusesStudentLoginAfterRosterCleared(t *testing.T) {
	ctx := context.Background()
	ledger := memory.New()
	opts := DefaultOptions()
	opts.BcryptCost = bcrypt.MinCost

	_, err := Run(ctx, ledger, opts, nil)
	require.NoError(t, err)

	var userID int64
	require.NoError(t, ledger.Update(ctx, func(tx store.Tx) error {
		students, err := tx.ListStudents(ctx)
		if err != nil {
			return err
		}
		for _, st := range students {
			if st.UserID != nil {
				userID = *st.UserID
			}
			if err := tx.DeleteStudent(ctx, st.ID); err != nil {
				return err
			}
		}
		return nil
	}))

	res, err := Run(ctx, ledger, opts, nil)
	require.NoError(t, err)
	assert.False(t, res.AdminCreated)
	assert.Equal(t, 4, res.StudentsCreated)

	require.NoError(t, ledger.View(ctx, func(r store.Reader) error {
		linked, err := r.StudentByUserID(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "TG/2021/001", linked.RegNo)
		return nil
	}))
}

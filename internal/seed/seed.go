// Package seed loads the default admin account and sample roster.
package seed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rusl-cricket/attendance/internal/auth"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

const (
	AdminEmail   = "admin@rusl.lk"
	StudentEmail = "student@tec.rjt.ac.lk"
)

// Options controls seeded credentials.
type Options struct {
	AdminPassword   string
	StudentPassword string
	BcryptCost      int
}

// DefaultOptions are the development credentials.
func DefaultOptions() Options {
	return Options{AdminPassword: "admin123", StudentPassword: "student123"}
}

// Result reports what Run created.
type Result struct {
	AdminCreated    bool
	StudentsCreated int
}

var sampleStudents = []model.Student{
	{RegNo: "TG/2021/001", Name: "John Doe", Faculty: "FOT", Year: 2021, ContactNumber: "0712345678"},
	{RegNo: "TG/2021/002", Name: "Jane Smith", Faculty: "FAS", Year: 2021, ContactNumber: "0712345679"},
	{RegNo: "TG/2022/045", Name: "Kamal Perera", Faculty: "FMC", Year: 2022, ContactNumber: "0723456789"},
	{RegNo: "TG/2020/120", Name: "Namal Silva", Faculty: "FSL", Year: 2020, ContactNumber: "0754567890"},
}

// Run creates the admin account when missing and, on an empty roster, the
// sample students with the first one linked to the STUDENT login, reusing
// that login when it already exists. Running it again is a no-op.
func Run(ctx context.Context, ledger store.Ledger, opts Options, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	adminHash, err := auth.HashPassword(opts.AdminPassword, opts.BcryptCost)
	if err != nil {
		return Result{}, err
	}
	studentHash, err := auth.HashPassword(opts.StudentPassword, opts.BcryptCost)
	if err != nil {
		return Result{}, err
	}

	var res Result
	now := time.Now().UTC()
	err = ledger.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.UserByEmail(ctx, AdminEmail); errors.Is(err, model.ErrNotFound) {
			admin := &model.User{Email: AdminEmail, Role: model.RoleAdmin, PasswordHash: adminHash, CreatedAt: now}
			if err := tx.CreateUser(ctx, admin); err != nil {
				return err
			}
			res.AdminCreated = true
		} else if err != nil {
			return err
		}

		n, err := tx.CountStudents(ctx)
		if err != nil || n > 0 {
			return err
		}
		user, err := tx.UserByEmail(ctx, StudentEmail)
		if errors.Is(err, model.ErrNotFound) {
			user = &model.User{Email: StudentEmail, Role: model.RoleStudent, PasswordHash: studentHash, CreatedAt: now}
			err = tx.CreateUser(ctx, user)
		}
		if err != nil {
			return err
		}
		for i, st := range sampleStudents {
			st.CreatedAt = now
			if i == 0 {
				st.UserID = &user.ID
			}
			if err := tx.CreateStudent(ctx, &st); err != nil {
				return err
			}
			res.StudentsCreated++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logger.Info("seed complete", slog.Bool("admin_created", res.AdminCreated), slog.Int("students_created", res.StudentsCreated))
	return res, nil
}

// Package roster manages the student roster.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// Input is the editable part of a student profile.
type Input struct {
	RegNo         string `json:"studentId" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Faculty       string `json:"faculty" validate:"required"`
	Year          int    `json:"year" validate:"required,min=1900"`
	ContactNumber string `json:"contactNumber"`
}

// Service lists and edits roster entries.
type Service struct {
	ledger store.Ledger
	log    *slog.Logger
	now    func() time.Time
}

func NewService(ledger store.Ledger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, log: logger.With(slog.String("component", "roster")), now: time.Now}
}

// List returns every student ordered by ID.
func (s *Service) List(ctx context.Context) ([]model.Student, error) {
	var out []model.Student
	err := s.ledger.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.ListStudents(ctx)
		return err
	})
	if out == nil && err == nil {
		out = []model.Student{}
	}
	return out, err
}

func (s *Service) Get(ctx context.Context, id int64) (*model.Student, error) {
	var out *model.Student
	err := s.ledger.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.GetStudent(ctx, id)
		return err
	})
	return out, err
}

// Create adds a student. The registration number must be unused.
func (s *Service) Create(ctx context.Context, in Input) (*model.Student, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	st := &model.Student{
		RegNo:         in.RegNo,
		Name:          in.Name,
		Faculty:       in.Faculty,
		Year:          in.Year,
		ContactNumber: in.ContactNumber,
		CreatedAt:     s.now().UTC(),
	}
	err := s.ledger.Update(ctx, func(tx store.Tx) error {
		return tx.CreateStudent(ctx, st)
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: student id %s", model.ErrAlreadyExists, in.RegNo)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("student added", slog.Int64("student_id", st.ID), slog.String("reg_no", st.RegNo))
	return st, nil
}

// Update replaces the profile fields of student id. The account link and
// creation time are preserved.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*model.Student, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	var out *model.Student
	err := s.ledger.Update(ctx, func(tx store.Tx) error {
		st, err := tx.GetStudent(ctx, id)
		if err != nil {
			return err
		}
		st.RegNo = in.RegNo
		st.Name = in.Name
		st.Faculty = in.Faculty
		st.Year = in.Year
		st.ContactNumber = in.ContactNumber
		if err := tx.UpdateStudent(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if errors.Is(err, model.ErrAlreadyExists) {
		return nil, fmt.Errorf("%w: student id %s", model.ErrAlreadyExists, in.RegNo)
	}
	return out, err
}

// Delete removes a student. Students with recorded attendance cannot be
// deleted and yield ErrConflict.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.ledger.Update(ctx, func(tx store.Tx) error {
		return tx.DeleteStudent(ctx, id)
	})
	if errors.Is(err, model.ErrConflict) {
		return fmt.Errorf("%w: student %d has attendance history", model.ErrConflict, id)
	}
	if err == nil {
		s.log.Info("student removed", slog.Int64("student_id", id))
	}
	return err
}

/*
holiday.go - Holiday calendar: model, read contract and admin service

PURPOSE:
  A Holiday marks one calendar date. National and company holidays take a
  weekday out of the working week; a record with IsWorkday=true on a
  weekend date turns that weekend date into a make-up working day.

  At most one holiday exists per date.

READ CONTRACT:
  Reader is all the duration calculator needs. The sqlite store implements
  it, both outside and inside a transaction.

ADMIN:
  Service wraps a Store with validation and the one-per-date rule.

SEE ALSO:
  - duration.go: Calculator
  - store/sqlite/holidays.go: persistence
*/
package calendar

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/generic"
)

type HolidayType string

const (
	HolidayNational HolidayType = "national"
	HolidayCompany  HolidayType = "company"
)

func (t HolidayType) Valid() bool {
	return t == HolidayNational || t == HolidayCompany
}

type Holiday struct {
	ID        string
	Date      generic.TimePoint
	Name      string
	Type      HolidayType
	Year      int
	IsWorkday bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reader is the read side consumed by the duration calculator.
type Reader interface {
	GetHolidaysInRange(ctx context.Context, period generic.Period) ([]Holiday, error)
	GetHolidayOnDate(ctx context.Context, date generic.TimePoint) (*Holiday, error)
}

// Store adds the admin surface. GetHoliday and GetHolidayOnDate return
// (nil, nil) when nothing matches.
type Store interface {
	Reader
	GetHoliday(ctx context.Context, id string) (*Holiday, error)
	ListHolidays(ctx context.Context, year int) ([]Holiday, error)
	InsertHoliday(ctx context.Context, h Holiday) error
	UpdateHoliday(ctx context.Context, h Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// =============================================================================
// SERVICE
// =============================================================================

type HolidayInput struct {
	Date      generic.TimePoint
	Name      string
	Type      HolidayType
	IsWorkday bool
}

type Service struct {
	store  Store
	logger *log.Entry
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		logger: log.WithField("component", "holiday-calendar"),
		now:    time.Now,
	}
}

func (s *Service) List(ctx context.Context, year int) ([]Holiday, error) {
	return s.store.ListHolidays(ctx, year)
}

func (s *Service) Range(ctx context.Context, period generic.Period) ([]Holiday, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	return s.store.GetHolidaysInRange(ctx, period)
}

func (s *Service) Get(ctx context.Context, id string) (*Holiday, error) {
	h, err := s.store.GetHoliday(ctx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, generic.NotFound("holiday %s not found", id)
	}
	return h, nil
}

func (s *Service) Create(ctx context.Context, in HolidayInput) (*Holiday, error) {
	if err := validateHoliday(in); err != nil {
		return nil, err
	}
	if err := s.ensureDateFree(ctx, in.Date, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	h := Holiday{
		ID:        uuid.NewString(),
		Date:      in.Date,
		Name:      strings.TrimSpace(in.Name),
		Type:      in.Type,
		Year:      in.Date.Year(),
		IsWorkday: in.IsWorkday,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertHoliday(ctx, h); err != nil {
		return nil, err
	}
	s.logger.WithFields(log.Fields{"date": h.Date.String(), "type": h.Type}).Info("holiday created")
	return &h, nil
}

func (s *Service) Update(ctx context.Context, id string, in HolidayInput) (*Holiday, error) {
	if err := validateHoliday(in); err != nil {
		return nil, err
	}
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDateFree(ctx, in.Date, id); err != nil {
		return nil, err
	}

	h.Date = in.Date
	h.Year = in.Date.Year()
	h.Name = strings.TrimSpace(in.Name)
	h.Type = in.Type
	h.IsWorkday = in.IsWorkday
	h.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateHoliday(ctx, *h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteHoliday(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("holiday_id", id).Info("holiday deleted")
	return nil
}

func (s *Service) ensureDateFree(ctx context.Context, date generic.TimePoint, selfID string) error {
	existing, err := s.store.GetHolidayOnDate(ctx, date)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != selfID {
		return generic.Conflict("a holiday already exists on %s", date)
	}
	return nil
}

func validateHoliday(in HolidayInput) error {
	if in.Date.IsZero() {
		return generic.Validation("holiday date is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return generic.Validation("holiday name is required")
	}
	if !in.Type.Valid() {
		return generic.Validation("unknown holiday type %q", in.Type)
	}
	return nil
}

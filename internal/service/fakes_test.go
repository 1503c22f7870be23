package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/dsr-service/internal/model"
	"github.com/iliyamo/dsr-service/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
	err    error
	pwErr  error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]model.User{}} }

func (m *memUsers) Create(_ context.Context, name, email, hash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	m.nextID++
	now := time.Now().UTC()
	m.byID[m.nextID] = model.User{ID: m.nextID, Name: name, Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	return m.nextID, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.User{}, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.User{}, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pwErr != nil {
		return m.pwErr
	}
	for id, u := range m.byID {
		if u.Email == email {
			u.PasswordHash = hash
			m.byID[id] = u
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint64, name, pic *string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	if name != nil {
		u.Name = *name
	}
	if pic != nil {
		u.ProfilePicture = pic
	}
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memCodes mimics the Redis code store: one code per email, overwritten on
// save, deleted on consume.
type memCodes struct {
	mu    sync.Mutex
	codes map[string]string
}

func newMemCodes() *memCodes { return &memCodes{codes: map[string]string{}} }

func (m *memCodes) Save(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *memCodes) Match(_ context.Context, email, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.codes[email]
	return ok && stored == code, nil
}

func (m *memCodes) Consume(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes[email] != code {
		return repository.ErrCodeMismatch
	}
	delete(m.codes, email)
	return nil
}

func (m *memCodes) expire(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, email)
}

type sentCode struct{ email, code string }

type recordingSender struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (r *recordingSender) SendCode(_ context.Context, email, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentCode{email, code})
	return nil
}

func (r *recordingSender) last() sentCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

// memReports applies the daily cap under a single mutex, which stands in for
// the user-row lock the MySQL store takes.
type memReports struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.DSR
	err    error
}

func newMemReports() *memReports { return &memReports{rows: map[uint64]model.DSR{}} }

func (m *memReports) sumLocked(userID uint64, date model.Date, exclude uint64) float64 {
	var sum float64
	for _, r := range m.rows {
		if r.UserID == userID && r.Date.Equal(date.Time) && r.ID != exclude {
			sum += r.EstimatedHour
		}
	}
	return sum
}

func (m *memReports) CreateWithinDailyLimit(_ context.Context, rec *model.DSR) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if model.OverDailyCap(m.sumLocked(rec.UserID, rec.Date, 0) + rec.EstimatedHour) {
		return repository.ErrDailyLimit
	}
	m.nextID++
	rec.ID = m.nextID
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.rows[rec.ID] = *rec
	return nil
}

func (m *memReports) GetForUser(_ context.Context, userID, id uint64) (model.DSR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return model.DSR{}, repository.ErrNotFound
	}
	return r, nil
}

func (m *memReports) Update(_ context.Context, userID, id uint64, hours float64, desc string, enforce bool) (model.DSR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return model.DSR{}, repository.ErrNotFound
	}
	if enforce && model.OverDailyCap(m.sumLocked(userID, r.Date, id)+hours) {
		return model.DSR{}, repository.ErrDailyLimit
	}
	r.EstimatedHour = hours
	r.Description = desc
	m.rows[id] = r
	return r, nil
}

func (m *memReports) List(_ context.Context, q repository.DSRQuery) ([]model.DSR, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}
	var all []model.DSR
	for _, r := range m.rows {
		if r.UserID != q.UserID {
			continue
		}
		if q.Start != nil && q.End != nil && (r.Date.Before(q.Start.Time) || r.Date.After(q.End.Time)) {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date.Time) {
			return all[i].Date.After(all[j].Date.Time)
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	from := (q.Page - 1) * q.Limit
	if from >= len(all) {
		return []model.DSR{}, total, nil
	}
	to := from + q.Limit
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], total, nil
}

func (m *memReports) dayTotal(userID uint64, date model.Date) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumLocked(userID, date, 0)
}

// Package repository implements ownership-scoped data access over the
// user-owned tables. Every query is filtered by the user resolved from the
// request context and every mutation is authorized through the ownership
// gate before it runs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/diewo77/faktura/auth"
	"github.com/diewo77/faktura/gate"
	"github.com/diewo77/faktura/internal/apperr"
	"github.com/diewo77/faktura/internal/policy"
	"github.com/diewo77/faktura/validation"
)

// Table describes one user-owned table.
type Table struct {
	Name       string
	Singular   string
	Updatable  []string
	Filterable []string
}

func (t Table) allows(cols []string, col string) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

var (
	Invoices = Table{
		Name:       "invoices",
		Singular:   "invoice",
		Updatable:  []string{"issue_date", "due_date", "status", "notes", "delivery_time", "delivery_place", "vat_rate"},
		Filterable: []string{"status", "client_id", "invoice_number"},
	}
	Clients = Table{
		Name:       "clients",
		Singular:   "client",
		Updatable:  []string{"name", "company", "email", "phone", "address", "postal_code", "city", "country"},
		Filterable: []string{"email", "name"},
	}
	CompanySettings = Table{
		Name:     "company_settings",
		Singular: "company settings",
		Updatable: []string{
			"company_name", "address_line1", "address_line2", "city", "state", "postal_code",
			"country", "phone", "email", "website", "bank_account", "notes",
			"organization_number", "is_company_registered", "vat_registered", "vat_number",
		},
	}
)

// Tables lists every table the scoped repository serves.
func Tables() []Table { return []Table{Invoices, Clients, CompanySettings} }

// Patch is a typed partial update. Fields returns the columns it sets.
type Patch interface {
	Fields() map[string]any
}

// Fields is a ready-made Patch for callers that already hold a column map.
type Fields map[string]any

func (f Fields) Fields() map[string]any { return f }

// Owned is a row the repository can stamp with its owner on insert.
type Owned interface {
	policy.Ownable
	SetUserID(uuid.UUID)
}

// Filters are equality conditions on filterable columns.
type Filters map[string]any

// Option adjusts a read query.
type Option func(*gorm.DB) *gorm.DB

// OrderBy sorts by a column. Only use columns known at compile time.
func OrderBy(col string, desc bool) Option {
	return func(db *gorm.DB) *gorm.DB {
		if desc {
			return db.Order(col + " DESC")
		}
		return db.Order(col + " ASC")
	}
}

// Preload eager-loads an association, optionally ordered.
func Preload(assoc, order string) Option {
	return func(db *gorm.DB) *gorm.DB {
		if order == "" {
			return db.Preload(assoc)
		}
		return db.Preload(assoc, func(tx *gorm.DB) *gorm.DB { return tx.Order(order) })
	}
}

// Limit caps the number of rows returned.
func Limit(n int) Option {
	return func(db *gorm.DB) *gorm.DB { return db.Limit(n) }
}

// Scoped is the ownership-scoped repository for model T.
type Scoped[T any] struct {
	db    *gorm.DB
	table Table
	gate  *gate.Gate[uuid.UUID]
	now   func() time.Time
}

// New creates a scoped repository for table. The gate must have a policy
// registered under table.Name.
func New[T any](db *gorm.DB, table Table, g *gate.Gate[uuid.UUID]) *Scoped[T] {
	return &Scoped[T]{db: db, table: table, gate: g, now: time.Now}
}

// WithTx returns a copy bound to tx.
func (s *Scoped[T]) WithTx(tx *gorm.DB) *Scoped[T] {
	c := *s
	c.db = tx
	return &c
}

// WithClock returns a copy using now for updated_at stamps.
func (s *Scoped[T]) WithClock(now func() time.Time) *Scoped[T] {
	c := *s
	c.now = now
	return &c
}

func currentUser(ctx context.Context) (uuid.UUID, error) {
	uid, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, apperr.ErrAuthenticationRequired
	}
	return uid, nil
}

func (s *Scoped[T]) scoped(ctx context.Context, uid uuid.UUID) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T)).Where(s.table.Name+".user_id = ?", uid)
}

func (s *Scoped[T]) checkFilters(f Filters) error {
	v := make(validation.Violations)
	for k := range f {
		if !s.table.allows(s.table.Filterable, k) {
			v.Add(k, "unknown_filter")
		}
	}
	if !v.Empty() {
		return apperr.Invalid("unsupported filter", v)
	}
	return nil
}

// List returns the current user's rows matching every filter.
func (s *Scoped[T]) List(ctx context.Context, f Filters, opts ...Option) ([]T, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkFilters(f); err != nil {
		return nil, err
	}
	q := s.scoped(ctx, uid)
	for _, k := range sortedKeys(f) {
		q = q.Where(fmt.Sprintf("%s.%s = ?", s.table.Name, k), f[k])
	}
	for _, o := range opts {
		q = o(q)
	}
	var rows []T
	if err := q.Find(&rows).Error; err != nil {
		return nil, apperr.Dependency("list "+s.table.Name, err)
	}
	return rows, nil
}

// Count returns how many of the current user's rows match the filters.
func (s *Scoped[T]) Count(ctx context.Context, f Filters) (int64, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.checkFilters(f); err != nil {
		return 0, err
	}
	q := s.scoped(ctx, uid)
	for _, k := range sortedKeys(f) {
		q = q.Where(fmt.Sprintf("%s.%s = ?", s.table.Name, k), f[k])
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, apperr.Dependency("count "+s.table.Name, err)
	}
	return n, nil
}

// GetOne returns the row with id owned by the current user. Rows of other
// users are reported as not found.
func (s *Scoped[T]) GetOne(ctx context.Context, id uuid.UUID, opts ...Option) (*T, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	q := s.scoped(ctx, uid).Where(s.table.Name+".id = ?", id)
	for _, o := range opts {
		q = o(q)
	}
	var row T
	if err := q.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(s.table.Singular + " not found")
		}
		return nil, apperr.Dependency("get "+s.table.Singular, err)
	}
	return &row, nil
}

// First returns the current user's only row, for one-per-user tables.
func (s *Scoped[T]) First(ctx context.Context) (*T, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	var row T
	if err := s.scoped(ctx, uid).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(s.table.Singular + " not found")
		}
		return nil, apperr.Dependency("get "+s.table.Singular, err)
	}
	return &row, nil
}

// Create inserts row owned by the current user.
func (s *Scoped[T]) Create(ctx context.Context, row *T) error {
	uid, err := currentUser(ctx)
	if err != nil {
		return err
	}
	o, ok := any(row).(Owned)
	if !ok {
		return fmt.Errorf("repository: %T cannot carry an owner", row)
	}
	o.SetUserID(uid)
	if err := s.gate.Authorize(ctx, uid, gate.ActionCreate, s.table.Name, nil); err != nil {
		return apperr.Denied("access denied")
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return apperr.Dependency("create "+s.table.Singular, err)
	}
	return nil
}

// authorize loads the owner of id and runs it through the gate. A missing
// row is denied like a foreign one.
func (s *Scoped[T]) authorize(ctx context.Context, uid, id uuid.UUID, action gate.Action) error {
	var owner policy.Owner
	res := s.db.WithContext(ctx).Model(new(T)).Select("user_id").Where("id = ?", id).Limit(1).Scan(&owner)
	if res.Error != nil {
		return apperr.Dependency("verify "+s.table.Singular+" owner", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Denied("access denied")
	}
	if err := s.gate.Authorize(ctx, uid, action, s.table.Name, owner); err != nil {
		return apperr.Denied("access denied")
	}
	return nil
}

// Update applies the allow-listed columns of p to the row with id and
// returns the updated row.
func (s *Scoped[T]) Update(ctx context.Context, id uuid.UUID, p Patch) (*T, error) {
	uid, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	cols := make(map[string]any)
	for k, v := range p.Fields() {
		if s.table.allows(s.table.Updatable, k) {
			cols[k] = v
		}
	}
	if len(cols) == 0 {
		return nil, apperr.Invalid("no updatable fields", nil)
	}
	if err := s.authorize(ctx, uid, id, gate.ActionUpdate); err != nil {
		return nil, err
	}
	cols["updated_at"] = s.now()
	res := s.db.WithContext(ctx).Model(new(T)).
		Where("id = ? AND user_id = ?", id, uid).
		Updates(cols)
	if res.Error != nil {
		return nil, apperr.Dependency("update "+s.table.Singular, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Denied("access denied")
	}
	return s.GetOne(ctx, id)
}

// Delete removes the row with id once ownership is verified.
func (s *Scoped[T]) Delete(ctx context.Context, id uuid.UUID) error {
	uid, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, uid, id, gate.ActionDelete); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, uid).Delete(new(T))
	if res.Error != nil {
		return apperr.Dependency("delete "+s.table.Singular, res.Error)
	}
	return nil
}

func sortedKeys(f Filters) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

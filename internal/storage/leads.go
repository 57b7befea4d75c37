package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusConverted Status = "converted"
	StatusRejected  Status = "rejected"
)

var Statuses = []Status{StatusNew, StatusContacted, StatusConverted, StatusRejected}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusConverted, StatusRejected:
		return true
	}
	return false
}

const SourceCalculator = "calculator"

// AddonList is stored as a comma separated column.
type AddonList []string

func (a AddonList) Value() (driver.Value, error) {
	return strings.Join(a, ","), nil
}

func (a *AddonList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*a = AddonList{}
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported addons column type %T", src)
	}
	if raw == "" {
		*a = AddonList{}
		return nil
	}
	*a = strings.Split(raw, ",")
	return nil
}

type Lead struct {
	ID          string    `db:"id" json:"id"`
	Status      Status    `db:"status" json:"status"`
	Source      string    `db:"source" json:"source"`
	ProjectType string    `db:"project_type" json:"projectType"`
	Addons      AddonList `db:"addons" json:"addons"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	Company     string    `db:"company" json:"company"`
	GDPRConsent bool      `db:"gdpr_consent" json:"gdprConsent"`
	PriceMin    int64     `db:"price_min" json:"priceMin"`
	PriceMax    int64     `db:"price_max" json:"priceMax"`
	Currency    string    `db:"currency" json:"currency"`
	IP          string    `db:"ip" json:"ip"`
	UserAgent   string    `db:"user_agent" json:"userAgent"`
	Referer     string    `db:"referer" json:"referer"`
	Note        string    `db:"note" json:"note"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type LeadFilter struct {
	Status      Status
	ProjectType string
	Since       time.Time
	Limit       int
	Offset      int
}

const leadColumns = `id, status, source, project_type, addons, name, email, phone, company,
	gdpr_consent, price_min, price_max, currency, ip, user_agent, referer, note, created_at, updated_at`

// SaveLead inserts lead, filling in the ID, status, source and timestamps
// when they are empty.
func (s *Storage) SaveLead(ctx context.Context, lead *Lead) error {
	const operation = "storage.SaveLead"

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Status == "" {
		lead.Status = StatusNew
	}
	if !lead.Status.Valid() {
		return fmt.Errorf("%s: %w: %q", operation, ErrInvalidStatus, lead.Status)
	}
	if lead.Source == "" {
		lead.Source = SourceCalculator
	}
	if lead.Addons == nil {
		lead.Addons = AddonList{}
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = s.now()
	}
	// Whole seconds in UTC keep SQLite's textual timestamps comparable.
	lead.CreatedAt = lead.CreatedAt.UTC().Truncate(time.Second)
	lead.UpdatedAt = lead.CreatedAt

	const query = `
		INSERT INTO leads (` + leadColumns + `)
		VALUES (:id, :status, :source, :project_type, :addons, :name, :email, :phone, :company,
			:gdpr_consent, :price_min, :price_max, :currency, :ip, :user_agent, :referer, :note,
			:created_at, :updated_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("%s: failed to save lead: %w", operation, err)
	}

	s.invalidateStats(ctx)
	return nil
}

func (s *Storage) GetLeadByID(ctx context.Context, id string) (*Lead, error) {
	query := s.db.Rebind(`SELECT ` + leadColumns + ` FROM leads WHERE id = ?`)

	var lead Lead
	if err := s.db.GetContext(ctx, &lead, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

// ListLeads returns leads matching filter, newest first.
func (s *Storage) ListLeads(ctx context.Context, filter LeadFilter) ([]Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.ProjectType != "" {
		where = append(where, "project_type = ?")
		args = append(args, filter.ProjectType)
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC().Truncate(time.Second))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + leadColumns + ` FROM leads`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			b.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	}

	leads := []Lead{}
	if err := s.db.SelectContext(ctx, &leads, s.db.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// UpdateLeadStatus moves a lead through the sales pipeline. An empty note
// keeps the existing one.
func (s *Storage) UpdateLeadStatus(ctx context.Context, id string, status Status, note string) error {
	const operation = "storage.UpdateLeadStatus"

	if !status.Valid() {
		return fmt.Errorf("%s: %w: %q", operation, ErrInvalidStatus, status)
	}

	var (
		res sql.Result
		err error
	)
	now := s.now().UTC().Truncate(time.Second)
	if note == "" {
		res, err = s.db.ExecContext(ctx,
			s.db.Rebind(`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`),
			status, now, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			s.db.Rebind(`UPDATE leads SET status = ?, updated_at = ?, note = ? WHERE id = ?`),
			status, now, note, id)
	}
	if err != nil {
		return fmt.Errorf("%s: failed to update lead: %w", operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if n == 0 {
		return ErrLeadNotFound
	}

	s.invalidateStats(ctx)
	return nil
}

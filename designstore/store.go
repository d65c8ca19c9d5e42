// Package designstore is the authoritative screen store. The editor reads a
// screen's HTML when entering edit mode and writes the rebuilt document back
// on exit or screen switch; nothing else mutates the html column while a
// session is live.
package designstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dukes-snr/EazyUi-sub001/dbopen"
	"github.com/dukes-snr/EazyUi-sub001/safety"
)

// Screen is one stored screen.
type Screen struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	HTML      string `json:"html"`
	Status    string `json:"status"` // "draft", "review", "final"
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Store is the design database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the design SQLite database at path and applies the
// schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// UpdateOption adjusts screen metadata alongside an HTML write.
type UpdateOption func(*updateParams)

type updateParams struct {
	name   *string
	status *string
	width  *int
	height *int
}

// WithName sets the screen's display name.
func WithName(name string) UpdateOption {
	return func(p *updateParams) { p.name = &name }
}

// WithStatus sets the screen's workflow status.
func WithStatus(status string) UpdateOption {
	return func(p *updateParams) { p.status = &status }
}

// WithSize sets the screen's design dimensions in pixels.
func WithSize(width, height int) UpdateOption {
	return func(p *updateParams) {
		p.width = &width
		p.height = &height
	}
}

// UpdateScreen writes a screen's HTML, creating the row when missing.
// Metadata columns only change when an option names them.
func (s *Store) UpdateScreen(ctx context.Context, id, html string, opts ...UpdateOption) error {
	if err := safety.ValidateIdentifier(id); err != nil {
		return fmt.Errorf("designstore: screen id: %w", err)
	}
	var p updateParams
	for _, o := range opts {
		o(&p)
	}
	now := time.Now().UnixMilli()

	existing, err := s.GetScreen(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		scr := Screen{ID: id, HTML: html, Status: "draft", CreatedAt: now, UpdatedAt: now}
		if p.name != nil {
			scr.Name = *p.name
		}
		if p.status != nil {
			scr.Status = *p.status
		}
		if p.width != nil {
			scr.Width, scr.Height = *p.width, *p.height
		}
		_, err := s.DB.ExecContext(ctx, `
			INSERT INTO screens (id, name, html, status, width, height, created_at, updated_at)
			VALUES (?,?,?,?,?,?,?,?)`,
			scr.ID, scr.Name, scr.HTML, scr.Status, scr.Width, scr.Height, scr.CreatedAt, scr.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("designstore: insert screen %s: %w", id, err)
		}
		return nil
	}

	if p.name != nil {
		existing.Name = *p.name
	}
	if p.status != nil {
		existing.Status = *p.status
	}
	if p.width != nil {
		existing.Width, existing.Height = *p.width, *p.height
	}
	_, err = s.DB.ExecContext(ctx, `
		UPDATE screens SET name = ?, html = ?, status = ?, width = ?, height = ?, updated_at = ?
		WHERE id = ?`,
		existing.Name, html, existing.Status, existing.Width, existing.Height, now, id,
	)
	if err != nil {
		return fmt.Errorf("designstore: update screen %s: %w", id, err)
	}
	return nil
}

// GetScreen retrieves a screen by id. Returns nil, nil when absent.
func (s *Store) GetScreen(ctx context.Context, id string) (*Screen, error) {
	scr := &Screen{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, html, status, width, height, created_at, updated_at
		FROM screens WHERE id = ?`, id).Scan(
		&scr.ID, &scr.Name, &scr.HTML, &scr.Status, &scr.Width, &scr.Height, &scr.CreatedAt, &scr.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("designstore: get screen %s: %w", id, err)
	}
	return scr, nil
}

// RemoveScreen deletes a screen. Removing an absent screen is not an error.
func (s *Store) RemoveScreen(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM screens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("designstore: remove screen %s: %w", id, err)
	}
	return nil
}

// ListScreens returns screens most recently updated first, optionally
// filtered by status. limit <= 0 means no limit.
func (s *Store) ListScreens(ctx context.Context, status string, limit int) ([]*Screen, error) {
	query := `
		SELECT id, name, html, status, width, height, created_at, updated_at
		FROM screens`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("designstore: list screens: %w", err)
	}
	defer rows.Close()

	var out []*Screen
	for rows.Next() {
		scr := &Screen{}
		if err := rows.Scan(&scr.ID, &scr.Name, &scr.HTML, &scr.Status, &scr.Width, &scr.Height, &scr.CreatedAt, &scr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, scr)
	}
	return out, rows.Err()
}

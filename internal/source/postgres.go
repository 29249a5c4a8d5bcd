package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"locator/internal/candidate"
	"locator/internal/geo"
	"locator/internal/metrics"
)

// OpenPostgres 打开连接池；maxOpen/maxIdle 小于等于 0 时沿用 50/25
func OpenPostgres(dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if maxOpen <= 0 {
		maxOpen = 50
	}
	if maxIdle <= 0 {
		maxIdle = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return db, nil
}

type retailerRow struct {
	ID        string         `db:"id"`
	Name      string         `db:"name"`
	Address   sql.NullString `db:"address"`
	City      sql.NullString `db:"city"`
	Postcode  sql.NullString `db:"postcode"`
	Phone     sql.NullString `db:"phone"`
	Email     sql.NullString `db:"email"`
	Website   sql.NullString `db:"website"`
	Latitude  float64        `db:"latitude"`
	Longitude float64        `db:"longitude"`
	Tier      sql.NullInt64  `db:"tier"`
}

func (r retailerRow) candidate() (candidate.Candidate, error) {
	pos := geo.Position{Lat: r.Latitude, Lng: r.Longitude}
	if !pos.Valid() {
		return candidate.Candidate{}, fmt.Errorf("retailer %s: %w", r.ID, candidate.ErrInvalidPosition)
	}
	return candidate.Candidate{
		ID:       r.ID,
		Name:     r.Name,
		Address:  r.Address.String,
		City:     r.City.String,
		Postcode: r.Postcode.String,
		Phone:    r.Phone.String,
		Email:    r.Email.String,
		Website:  r.Website.String,
		Position: pos,
		Tier:     int(r.Tier.Int64),
	}, nil
}

const selectRetailers = `SELECT id, name, address, city, postcode, phone, email, website, latitude, longitude, tier
	FROM retailers WHERE active ORDER BY id`

// Postgres 从 retailers 表读取启用的门店
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

func (s *Postgres) Fetch(ctx context.Context) ([]candidate.Candidate, error) {
	t0 := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues("postgres").Inc()
	cands, err := s.fetch(ctx)
	return instrument("postgres", t0, cands, err)
}

func (s *Postgres) fetch(ctx context.Context) ([]candidate.Candidate, error) {
	var rows []retailerRow
	if err := s.db.SelectContext(ctx, &rows, selectRetailers); err != nil {
		return nil, err
	}
	out := make([]candidate.Candidate, 0, len(rows))
	for _, r := range rows {
		c, err := r.candidate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

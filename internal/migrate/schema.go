package migrate

import (
	"context"

	"github.com/jmoiron/sqlx"

	"locator/internal/candidate"
	"locator/internal/logger"
)

// 背景：首次运行自动创建门店表与索引，保障导入工具与 Postgres 数据源可直接使用
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
var schema = []string{
	`CREATE TABLE IF NOT EXISTS retailers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		city TEXT,
		postcode TEXT,
		phone TEXT,
		email TEXT,
		website TEXT,
		latitude DOUBLE PRECISION NOT NULL CHECK (latitude BETWEEN -90 AND 90),
		longitude DOUBLE PRECISION NOT NULL CHECK (longitude BETWEEN -180 AND 180),
		tier INT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_retailers_active ON retailers(active)`,
}

func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, s := range schema {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}

const upsertRetailer = `INSERT INTO retailers (id, name, address, city, postcode, phone, email, website, latitude, longitude, tier, active, updated_at)
	VALUES (:id, :name, :address, :city, :postcode, :phone, :email, :website, :latitude, :longitude, :tier, TRUE, now())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name, address = EXCLUDED.address, city = EXCLUDED.city, postcode = EXCLUDED.postcode,
		phone = EXCLUDED.phone, email = EXCLUDED.email, website = EXCLUDED.website,
		latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude, tier = EXCLUDED.tier,
		active = TRUE, updated_at = now()`

// Retailer 导入行；Tier 为 nil 表示未分级
type Retailer struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	Address   string  `db:"address"`
	City      string  `db:"city"`
	Postcode  string  `db:"postcode"`
	Phone     string  `db:"phone"`
	Email     string  `db:"email"`
	Website   string  `db:"website"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Tier      *int    `db:"tier"`
}

// FromCandidates 转换为导入行；Tier 为 0 写入 NULL
func FromCandidates(cands []candidate.Candidate) []Retailer {
	rows := make([]Retailer, 0, len(cands))
	for _, c := range cands {
		r := Retailer{
			ID:        c.ID,
			Name:      c.Name,
			Address:   c.Address,
			City:      c.City,
			Postcode:  c.Postcode,
			Phone:     c.Phone,
			Email:     c.Email,
			Website:   c.Website,
			Latitude:  c.Position.Lat,
			Longitude: c.Position.Lng,
		}
		if c.Tier != 0 {
			t := c.Tier
			r.Tier = &t
		}
		rows = append(rows, r)
	}
	return rows
}

// Upsert 单事务批量写入；deactivateMissing 为真时把本批未出现的门店置为停用
func Upsert(ctx context.Context, db *sqlx.DB, rows []Retailer, deactivateMissing bool) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertRetailer)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r); err != nil {
			return 0, err
		}
		ids = append(ids, r.ID)
	}
	if deactivateMissing {
		q, args := `UPDATE retailers SET active = FALSE, updated_at = now() WHERE active`, []interface{}(nil)
		if len(ids) > 0 {
			q, args, err = sqlx.In(q+` AND id NOT IN (?)`, ids)
			if err != nil {
				return 0, err
			}
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	logger.L().Info("retailers_upsert", "count", len(rows), "deactivate_missing", deactivateMissing)
	return len(rows), nil
}

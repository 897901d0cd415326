package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/db/record"
)

type catalogView struct {
	q querier
}

func (c catalogView) ByID(ctx context.Context, id domaincatalog.UnitID) (*domaincatalog.Unit, error) {
	var doc []byte
	err := c.q.QueryRow(ctx, `SELECT doc FROM catalog_units WHERE id = $1`, string(id)).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domaincatalog.ErrUnitNotFound.WithDetail("unit_id", string(id))
	}
	if err != nil {
		return nil, classify(err)
	}
	var rec record.Unit
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return rec.ToUnit()
}

type userDirectory struct {
	q querier
}

func (d userDirectory) Exists(ctx context.Context, id domainuser.ID) (bool, error) {
	var ok bool
	err := d.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, string(id)).Scan(&ok)
	return ok, classify(err)
}

// PutUnit upserts a catalog snapshot outside any unit of work.
func (c *Client) PutUnit(ctx context.Context, unit *domaincatalog.Unit) error {
	if unit == nil {
		return domaincatalog.ErrUnitNotFound
	}
	if err := unit.Validate(); err != nil {
		return err
	}
	rec := record.FromUnit(unit)
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = c.Pool.Exec(ctx, `
		INSERT INTO catalog_units (id, host_id, doc, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET host_id = EXCLUDED.host_id, doc = EXCLUDED.doc, updated_at = now()`,
		rec.ID, rec.HostID, doc)
	return err
}

func (c *Client) PutUser(ctx context.Context, profile domainuser.Profile) error {
	if profile.ID == "" {
		return domainuser.ErrIDRequired
	}
	roles := make([]string, 0, len(profile.Roles))
	for _, r := range profile.Roles {
		roles = append(roles, string(r))
	}
	_, err := c.Pool.Exec(ctx, `
		INSERT INTO users (id, name, email, roles) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, roles = EXCLUDED.roles`,
		string(profile.ID), profile.Name, profile.Email, roles)
	return err
}

var (
	_ domaincatalog.Catalog = catalogView{}
	_ domainuser.Directory  = userDirectory{}
)

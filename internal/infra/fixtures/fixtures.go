// Package fixtures seeds catalog units and users from a JSON file at startup.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"travelbooking/internal/domain/cancellation"
	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/db/record"
)

// Seeder is implemented by every store driver.
type Seeder interface {
	PutUnit(ctx context.Context, unit *domaincatalog.Unit) error
	PutUser(ctx context.Context, profile domainuser.Profile) error
}

type File struct {
	Units []UnitFixture `json:"units"`
	Users []UserFixture `json:"users"`
}

type UnitFixture struct {
	ID             string        `json:"id"`
	HostID         string        `json:"host_id"`
	Title          string        `json:"title"`
	MaxGuests      int           `json:"max_guests"`
	BasePrice      record.Money  `json:"base_price"`
	CleaningFee    *record.Money `json:"cleaning_fee,omitempty"`
	ApprovalStatus string        `json:"approval_status"`
	// Policy names a preset; CustomPolicy wins when both are set.
	Policy       string               `json:"cancellation_policy"`
	CustomPolicy *cancellation.Policy `json:"custom_cancellation_policy,omitempty"`
}

type UserFixture struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

type Summary struct {
	Units   int
	Users   int
	Skipped int
}

// Load reads path and stores every valid entry. A missing file is not an error;
// invalid entries are logged and skipped.
func Load(ctx context.Context, path string, seeder Seeder, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("read fixtures: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		logger.Warn("fixtures file empty", "path", path)
		return Summary{}, nil
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return Summary{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return Apply(ctx, file, seeder, logger), nil
}

func Apply(ctx context.Context, file File, seeder Seeder, logger *slog.Logger) Summary {
	var sum Summary
	for _, fx := range file.Users {
		if err := seeder.PutUser(ctx, fx.profile()); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			sum.Skipped++
			continue
		}
		sum.Users++
	}
	for _, fx := range file.Units {
		unit, err := fx.unit()
		if err != nil {
			logger.Error("fixture invalid", "unit_id", fx.ID, "error", err)
			sum.Skipped++
			continue
		}
		if err := seeder.PutUnit(ctx, unit); err != nil {
			logger.Error("cannot store fixture unit", "unit_id", fx.ID, "error", err)
			sum.Skipped++
			continue
		}
		sum.Units++
	}
	logger.Info("fixtures imported", "units", sum.Units, "users", sum.Users, "skipped", sum.Skipped)
	return sum
}

func (fx UnitFixture) unit() (*domaincatalog.Unit, error) {
	policy, err := fx.policy()
	if err != nil {
		return nil, err
	}
	status := strings.ToUpper(strings.TrimSpace(fx.ApprovalStatus))
	if status == "" {
		status = string(domaincatalog.ApprovalApproved)
	}
	rec := record.Unit{
		ID:                 strings.TrimSpace(fx.ID),
		HostID:             strings.TrimSpace(fx.HostID),
		Title:              strings.TrimSpace(fx.Title),
		MaxGuests:          fx.MaxGuests,
		BasePrice:          fx.BasePrice,
		CleaningFee:        fx.CleaningFee,
		ApprovalStatus:     status,
		CancellationPolicy: policy,
	}
	unit, err := rec.ToUnit()
	if err != nil {
		return nil, err
	}
	if err := unit.Validate(); err != nil {
		return nil, err
	}
	return unit, nil
}

func (fx UnitFixture) policy() (cancellation.Policy, error) {
	if fx.CustomPolicy != nil {
		p := *fx.CustomPolicy
		if p.Type == "" {
			p.Type = cancellation.TypeCustom
		}
		return p, p.Validate()
	}
	if strings.TrimSpace(fx.Policy) == "" {
		return cancellation.Moderate(), nil
	}
	return cancellation.PolicyFor(cancellation.Type(strings.TrimSpace(fx.Policy)))
}

func (fx UserFixture) profile() domainuser.Profile {
	return domainuser.Profile{
		ID:    domainuser.ID(strings.TrimSpace(fx.ID)),
		Name:  fx.Name,
		Email: fx.Email,
		Roles: domainuser.ParseRoles(strings.Join(fx.Roles, ",")),
	}
}

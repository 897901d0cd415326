package fixtures_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travelbooking/internal/app/uow"
	"travelbooking/internal/domain/cancellation"
	domaincatalog "travelbooking/internal/domain/catalog"
	"travelbooking/internal/infra/fixtures"
	"travelbooking/internal/infra/storage/memory"
)

const sample = `{
  "users": [
    {"id": "guest-1", "name": "Ann", "roles": ["guest"]},
    {"id": "", "name": "nobody"}
  ],
  "units": [
    {"id": "unit-1", "host_id": "host-1", "title": "Sea view flat", "max_guests": 4,
     "base_price": {"amount": "120", "currency": "EUR"}, "cleaning_fee": {"amount": "30", "currency": "EUR"},
     "cancellation_policy": "strict"},
    {"id": "unit-2", "host_id": "host-1", "title": "Cabin", "max_guests": 2,
     "base_price": {"amount": "80", "currency": "USD"}, "approval_status": "pending",
     "custom_cancellation_policy": {"free_cancellation_days": 3, "full_refund_before_days": 3}},
    {"id": "unit-3", "host_id": "host-1", "title": "Broken", "max_guests": 0,
     "base_price": {"amount": "80", "currency": "USD"}}
  ]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestLoadSeedsValidEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "units.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	store := memory.NewStore()

	sum, err := fixtures.Load(ctx, path, store, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, fixtures.Summary{Units: 2, Users: 1, Skipped: 2}, sum)

	unit, err := store.Factory().Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	defer unit.Rollback(ctx)

	flat, err := unit.Units().ByID(ctx, "unit-1")
	require.NoError(t, err)
	assert.True(t, flat.Bookable())
	assert.Equal(t, cancellation.Strict(), flat.CancellationPolicy)
	require.NotNil(t, flat.CleaningFee)
	assert.Equal(t, "30.00 EUR", flat.CleaningFee.String())

	cabin, err := unit.Units().ByID(ctx, "unit-2")
	require.NoError(t, err)
	assert.Equal(t, domaincatalog.ApprovalPending, cabin.ApprovalStatus)
	assert.Equal(t, cancellation.TypeCustom, cabin.CancellationPolicy.Type)
	assert.Equal(t, 3, cabin.CancellationPolicy.FreeCancellationDays)

	_, err = unit.Units().ByID(ctx, "unit-3")
	require.ErrorIs(t, err, domaincatalog.ErrUnitNotFound)

	exists, err := unit.Users().Exists(ctx, "guest-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	sum, err := fixtures.Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"), memory.NewStore(), quietLogger())
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"units": [`), 0o600))

	_, err := fixtures.Load(context.Background(), path, memory.NewStore(), quietLogger())
	require.ErrorContains(t, err, "decode fixtures")
}

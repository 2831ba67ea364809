package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/teamgate/pkg/auth"
	"github.com/platinummonkey/teamgate/pkg/config"
	"github.com/platinummonkey/teamgate/pkg/observability"
)

func TestStartMaintenance(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tokens := auth.NewTokenManager(auth.NewSQLStore(db))
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	scheduler, err := startMaintenance(config.MaintenanceConfig{TokenCleanupSchedule: "@every 1h"},
		tokens, db, nil, metrics, observability.NewNopLogger())
	require.NoError(t, err)
	defer scheduler.Stop()

	assert.Len(t, scheduler.Entries(), 2)
}

func TestStartMaintenance_InvalidSchedule(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = startMaintenance(config.MaintenanceConfig{TokenCleanupSchedule: "not a schedule"},
		auth.NewTokenManager(auth.NewSQLStore(db)), db, nil, nil, observability.NewNopLogger())
	assert.Error(t, err)
}

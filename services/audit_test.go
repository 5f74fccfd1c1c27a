package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fantasy12/apperr"
	"fantasy12/models"
)

func TestAuditCreateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 0)

	e, err := f.audit.Create(ctx, CreateLogInput{UserID: u.ID, UserName: "old name", Action: "Visitou"})
	require.NoError(t, err)
	assert.Equal(t, models.LogInfo, e.Type)

	_, err = f.audit.Create(ctx, CreateLogInput{Action: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.audit.Create(ctx, CreateLogInput{Action: "x", Type: "fatal"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	logs, err := f.audit.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Ana", logs[0].UserName, "listing shows the live user name")
}

func TestAuditRecordSwallowsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "Ana", models.RoleUser, 0)

	f.store.FailOn("CreateLog", errors.New("db down"))
	f.auth.Logout(ctx, u.ID)
	assert.Empty(t, f.store.Logs())

	f.store.FailOn("CreateLog", errors.New("db down"))
	_, err := f.audit.Create(ctx, CreateLogInput{Action: "x"})
	assert.True(t, apperr.Is(err, apperr.KindInternal))
}

type recordingArchiver struct {
	key string
	v   any
	err error
}

func (r *recordingArchiver) PutJSON(_ context.Context, key string, v any) error {
	r.key, r.v = key, v
	return r.err
}

func TestAuditArchiveDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)

	for _, ts := range []time.Time{
		day.Add(-16 * time.Hour), // May 31
		day.Add(-time.Hour),
		day.Add(8*time.Hour + 59*time.Minute),
		day.Add(9 * time.Hour), // June 2
	} {
		require.NoError(t, f.store.CreateLog(ctx, &models.LogEntry{Action: "x", Type: models.LogInfo, Timestamp: ts}))
	}

	arch := &recordingArchiver{}
	n, err := f.audit.ArchiveDay(ctx, arch, day)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "audit-logs/2026/06/01.json", arch.key)
	assert.Len(t, arch.v, 2)

	empty := &recordingArchiver{}
	n, err = f.audit.ArchiveDay(ctx, empty, day.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, empty.key)

	arch.err = errors.New("bucket gone")
	_, err = f.audit.ArchiveDay(ctx, arch, day)
	assert.ErrorContains(t, err, "bucket gone")
}

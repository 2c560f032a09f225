package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/alama/core"
	testutil "github.com/trezcool/alama/tests"
)

func TestRound(t *testing.T) {
	tests := []struct {
		val    float64
		places int
		want   float64
	}{
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{62.25, 1, 62.3},
		{200.0 / 3, 1, 66.7},
		{100.0 / 3, 2, 33.33},
		{0, 2, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, core.Round(tt.val, tt.places), "Round(%v, %d)", tt.val, tt.places)
	}
}

func TestDates(t *testing.T) {
	d, err := core.ParseDate(" 2024-03-04 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), d)

	_, err = core.ParseDate("04/03/2024")
	assert.Error(t, err)

	kinshasa := time.FixedZone("WAT", 3600)
	assert.Equal(t, d, core.TruncateDate(time.Date(2024, 3, 4, 0, 30, 0, 0, time.UTC).In(kinshasa)))
}

func TestErrorKinds(t *testing.T) {
	notFound := core.NewNotFoundError("course")
	assert.Equal(t, "course not found", notFound.Error())
	assert.True(t, core.IsNotFound(errors.Wrap(notFound, "loading")))

	perm := core.NewPermissionError("instructor")
	assert.Equal(t, "permission denied: instructor role required", perm.Error())
	assert.True(t, core.IsPermissionDenied(errors.Wrap(perm, "entering grade")))

	vErr := core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	assert.Equal(t, "date: this field is required", vErr.Error())
	assert.True(t, core.IsValidationError(errors.Wrap(vErr, "submitting")))

	pErr := errors.Wrap(core.NewPersistenceError(errors.New("disk full")), "saving")
	assert.True(t, core.IsPersistenceError(pErr))
	assert.False(t, core.IsPersistenceError(errors.New("disk full")))
	assert.False(t, core.IsPersistenceError(nil))

	assert.True(t, core.IsShutdown(errors.Wrap(core.NewShutdownError("integrity issue"), "handler")))
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	_, err := db.Exec("CREATE TABLE tx_probe (n INTEGER NOT NULL)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM tx_probe"))
		return n
	}
	insert := func(tx core.DBExecutor) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO tx_probe (n) VALUES (1)")
		return err
	}

	require.NoError(t, core.RunInTx(ctx, db, insert))
	assert.Equal(t, 1, count())

	errBoom := errors.New("boom")
	err = core.RunInTx(ctx, db, func(tx core.DBExecutor) error {
		if err := insert(tx); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err, "errors of fn pass through untouched")
	assert.Equal(t, 1, count())

	err = core.RunInTx(ctx, db, func(tx core.DBExecutor) error {
		_ = insert(tx)
		panic("oops")
	})
	assert.True(t, core.IsPersistenceError(err))
	assert.Equal(t, 1, count())
}

func TestEmailMessage_Render(t *testing.T) {
	conf := core.NewTestConfig()

	t.Run("templated", func(t *testing.T) {
		msg := &core.EmailMessage{
			TemplateName: "password_reset",
			TemplateData: map[string]string{"Name": "Alice", "Username": "alice", "UID": "uid", "Token": "tok"},
		}
		require.NoError(t, msg.Render(conf))
		assert.True(t, msg.HasContent())
		assert.Contains(t, msg.TextContent, "Hello Alice,")
		assert.Contains(t, msg.TextContent, "The Alama team")
		assert.Contains(t, msg.HTMLContent, "alice")
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &core.EmailMessage{TemplateName: "nope"}
		assert.EqualError(t, msg.Render(conf), `email template "nope" not found`)
		assert.False(t, msg.HasContent())
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &core.EmailMessage{BodyStr: "hi"}
		require.NoError(t, msg.Render(conf))
		assert.Equal(t, "hi", msg.TextContent)
	})
}

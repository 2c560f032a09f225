package logsvc

import (
	"context"
	"errors"
	"testing"

	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/trezcool/alama/core/user"
)

func personOf(t *testing.T, rbArgs []interface{}) *rollbar.Person {
	t.Helper()

	var person *rollbar.Person
	for _, arg := range rbArgs {
		if ctx, ok := arg.(context.Context); ok {
			p, found := rollbar.PersonFromContext(ctx)
			require.True(t, found)
			require.Nil(t, person, "more than one person attached")
			person = p
		}
	}
	return person
}

func TestRollbarLogger_prepare(t *testing.T) {
	l := NewNopLogger()
	alice := user.User{ID: "u1", Username: "alice", Email: "alice@x.io"}
	bob := user.User{ID: "u2", Username: "bob", Email: "bob@x.io"}
	boom := errors.New("boom")

	t.Run("person per item", func(t *testing.T) {
		aliceArgs, fields := l.prepare("failed", []interface{}{boom, alice, bob})
		bobArgs, _ := l.prepare("failed", []interface{}{bob})

		assert.Equal(t, &rollbar.Person{Id: "u1", Username: "alice", Email: "alice@x.io"}, personOf(t, aliceArgs))
		assert.Equal(t, &rollbar.Person{Id: "u2", Username: "bob", Email: "bob@x.io"}, personOf(t, bobArgs))
		assert.Equal(t, []interface{}{"error", "boom", "user_id", "u1", "username", "alice"}, fields)
	})

	t.Run("no person", func(t *testing.T) {
		rbArgs, fields := l.prepare("hello", []interface{}{map[string]interface{}{"course": "CS101"}})
		assert.Nil(t, personOf(t, rbArgs))
		assert.Equal(t, "hello", rbArgs[0])
		assert.Equal(t, []interface{}{"course", "CS101"}, fields)
	})
}

func TestRollbarLogger_zapOutput(t *testing.T) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	l := &RollbarLogger{sugar: zap.New(obsCore).Sugar()}
	rollbar.SetEnabled(false)

	l.Warn("attendance batch rolled back", errors.New("boom"), user.User{ID: "u1", Username: "ivy"})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "attendance batch rolled back", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"error": "boom", "user_id": "u1", "username": "ivy"}, entries[0].ContextMap())
}

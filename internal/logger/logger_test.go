package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewWritesDailyFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := t.TempDir()
	l, err := New(dir, "debug", false)
	require.NoError(t, err)
	l.Info("hello", zap.String("k", "v"))
	_ = l.Sync()

	raw, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"msg":"hello"`)
	assert.Contains(t, string(raw), `"level":"info"`)
	assert.Same(t, l, zap.L())

	_, err = New(dir, "chatty", false)
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	assert.Same(t, zap.L(), FromContext(context.Background()))

	l := zaptest.NewLogger(t)
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

package report

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klbrun/klbapi/config"
)

func TestLogSenderNeverFails(t *testing.T) {
	s := &LogSender{Log: zap.NewNop()}
	err := s.Send(context.Background(), "ops@example.com", "subject", "body")
	require.NoError(t, err)
}

func TestFromConfig(t *testing.T) {
	log := zap.NewNop()

	t.Run("SMTP When Configured", func(t *testing.T) {
		s := FromConfig(&config.Config{SMTPAddr: "mail:25", ReportFrom: "noreply@x"}, log)
		smtp, ok := s.(*SMTPSender)
		require.True(t, ok)
		assert.Equal(t, "mail:25", smtp.Addr)
		assert.Equal(t, "noreply@x", smtp.From)
	})

	t.Run("Log Fallback Otherwise", func(t *testing.T) {
		s := FromConfig(&config.Config{}, log)
		_, ok := s.(*LogSender)
		assert.True(t, ok)
	})
}

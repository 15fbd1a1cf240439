package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	n := NewSMTPNotifier("mail", 25, "noreply@shots.local", zap.NewNop())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	require.NoError(t, n.NotifyFailure(context.Background(), "a@b.c", "job-1", "u/v.mp4", "no frames"))
	assert.Equal(t, "mail:25", gotAddr)
	assert.Equal(t, []string{"a@b.c"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Shot detection failed [Job job-1]")
	assert.Contains(t, gotMsg, "Error: no frames")
}

func TestNotifyFailureSendError(t *testing.T) {
	n := NewSMTPNotifier("mail", 25, "noreply@shots.local", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.NotifyFailure(context.Background(), "a@b.c", "job-1", "u/v.mp4", "x")
	assert.ErrorContains(t, err, "connection refused")
}

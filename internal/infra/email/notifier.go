package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, send: smtp.SendMail, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail, jobID, videoKey, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	if err := n.send(addr, nil, n.from, []string{userEmail}, failureMessage(n.from, userEmail, jobID, videoKey, errorMsg)); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureMessage(from, to, jobID, videoKey, errorMsg string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\n", from, to)
	fmt.Fprintf(&b, "Subject: Shot detection failed [Job %s]\r\n\r\n", jobID)
	b.WriteString("Hello,\r\n\r\n")
	b.WriteString("Scene detection for your video failed after all retry attempts.\r\n\r\n")
	fmt.Fprintf(&b, "Job ID: %s\r\nVideo: %s\r\nError: %s\r\n\r\n", jobID, videoKey, errorMsg)
	b.WriteString("Please check that the file is a readable video and submit it again.\r\n")
	return []byte(b.String())
}

package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tazhibayda/smartfarm-api/internal/config"
	"github.com/tazhibayda/smartfarm-api/internal/log"
	"github.com/tazhibayda/smartfarm-api/internal/mail"
	"github.com/tazhibayda/smartfarm-api/internal/queue"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	l, err := log.Init(strings.EqualFold(cfg.AppEnv, "production"))
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	var sender mail.Sender = mail.LogSender{}
	if cfg.SMTPHost != "" {
		s, err := mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			l.Fatal("smtp init failed", zap.Error(err))
		}
		sender = s
	} else {
		l.Warn("SMTP_HOST not set, mail is only logged")
	}

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKeys)
	if err != nil {
		l.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Info("notifier up",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.Strings("keys", cfg.BindKeys),
		zap.Int("workers", cfg.Concurrency))

	n := &mail.Notifier{Sender: sender}
	if err := cons.Consume(ctx, cfg.Concurrency, func(ctx context.Context, key string, body []byte) error {
		err := n.Handle(ctx, key, body)
		if err != nil {
			l.Warn("notification failed, requeued", zap.String("key", key), zap.Error(err))
		}
		return err
	}); err != nil {
		l.Fatal("consumer stopped", zap.Error(err))
	}
}

package bootstrap

import (
	"fmt"
	"log/slog"

	"scheduled-mailer/internal/infra/transport"
	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/usecase/delivery"

	"go.uber.org/fx"
)

var TransportModule = fx.Module("transport",
	fx.Provide(
		NewTransport,
	),
)

func NewTransport(cfg config.Config, logger *slog.Logger) (delivery.Transport, error) {
	mc := cfg.Mail
	switch mc.Transport {
	case "smtp":
		signer, err := transport.LoadDKIMSigner(mc.DKIMDomain, mc.DKIMSelector, mc.DKIMKeyPath)
		if err != nil {
			return nil, err
		}
		return transport.NewSMTP(transport.SMTPConfig{
			Host:     mc.SMTPHost,
			Port:     mc.SMTPPort,
			User:     mc.SMTPUser,
			Password: mc.SMTPPassword,
			SSL:      mc.SMTPSSL,
			From:     mc.From,
		}, signer, logger), nil
	case "postmark":
		return transport.NewPostmark(transport.PostmarkConfig{
			ServerToken:  mc.PostmarkServerToken,
			AccountToken: mc.PostmarkAccountToken,
			Stream:       mc.PostmarkStream,
			From:         mc.From,
		}, logger)
	case "log", "":
		logger.Warn("MAIL_TRANSPORT=log: emails are logged, not delivered")
		return transport.NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q", mc.Transport)
	}
}

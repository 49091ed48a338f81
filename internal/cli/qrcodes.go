package cli

import (
	"context"
	"log/slog"
	"os"

	"chess-quiz-service/internal/config"
	"chess-quiz-service/internal/logging"
	"chess-quiz-service/internal/qrcode"
	"github.com/spf13/cobra"
)

// NewQRCodesCmd pre-renders the QR code of every board position.
func NewQRCodesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "qrcodes",
		Short: "Generate QR code images for all 64 board positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQRCodes(cmd.Context(), *configPath)
		},
	}
}

func runQRCodes(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	generator := newQRGenerator(cfg, nil, logger)

	refs, err := generator.GenerateAll(ctx)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "qr codes ready", slog.Int("count", len(refs)), slog.String("dir", generator.Dir()))
	return nil
}

func newQRGenerator(cfg config.Config, rec qrcode.Recorder, logger *slog.Logger) *qrcode.Generator {
	dir := cfg.QRCode.Dir
	if dir == "" {
		dir = "qrcodes"
	}
	return qrcode.NewGenerator(qrcode.Config{
		Dir:     dir,
		BaseURL: cfg.QRCode.BaseURL,
		Size:    cfg.QRCode.Size,
	}, rec, logger)
}

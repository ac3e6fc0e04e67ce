package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/ocrpdf/pkg/azure"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/providers"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/storage"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/tesseract"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/textract"
	"github.com/lehigh-university-libraries/ocrpdf/pkg/vision"
)

var RootCmd = &cobra.Command{
	Use:   "ocrpdf",
	Short: "Make scanned PDFs searchable",
	Long: `Make scanned PDFs searchable by placing an invisible text layer over every page.

Pages are rendered, sent to an OCR service and each recognized word is written
back at its original position, size and rotation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		ll, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}

		switch strings.ToUpper(ll) {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		// stdout may carry the document itself
		handler := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(handler)

		return nil
	},
}

// newStore is replaced in tests
var newStore = storage.New

func newRegistry() *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register("textract", func(ctx context.Context) (providers.Provider, error) {
		p, err := textract.NewFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	registry.Register("azure", func(ctx context.Context) (providers.Provider, error) {
		return azure.New(), nil
	})
	registry.Register("vision", func(ctx context.Context) (providers.Provider, error) {
		p, err := vision.NewFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	registry.Register("tesseract", func(ctx context.Context) (providers.Provider, error) {
		return tesseract.New(), nil
	})
	return registry
}

// closeProvider releases clients that hold connections
func closeProvider(p providers.Provider) {
	if c, ok := p.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close provider", "provider", p.Name(), "err", err)
		}
	}
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	ll := os.Getenv("LOG_LEVEL")
	if ll == "" {
		ll = "INFO"
	}
	RootCmd.PersistentFlags().String("log-level", ll, "The logging level for the command")
}

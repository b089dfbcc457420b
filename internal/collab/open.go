package collab

import (
	"context"
	"fmt"
	"io"

	"github.com/czhharrison/MerchantChat/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the collaborator handle selected by cfg.Kind. On error the
// returned handle is absent and the closer is a no-op, so callers may log
// the error and keep running deterministically.
func Open(ctx context.Context, cfg config.Collaborator) (Handle, io.Closer, error) {
	switch cfg.Kind {
	case "", "none":
		return Absent(), nopCloser{}, nil
	case "grpc":
		c, err := NewGRPCClient(cfg.Addr)
		if err != nil {
			return Absent(), nopCloser{}, err
		}
		return Present("grpc", c, cfg.Timeout), c, nil
	case "gemini":
		if cfg.APIKey == "" {
			return Absent(), nopCloser{}, fmt.Errorf("GEMINI_API_KEY is required for the gemini collaborator")
		}
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return Absent(), nopCloser{}, err
		}
		return Present("gemini", c, cfg.Timeout), c, nil
	default:
		return Absent(), nopCloser{}, fmt.Errorf("unknown collaborator kind %q", cfg.Kind)
	}
}

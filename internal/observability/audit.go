package observability

import (
	"context"
	"log/slog"
)

// Audit emits one structured audit line for an administrative action.
func Audit(ctx context.Context, event string, attrs ...any) {
	base := []any{"event", event}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}

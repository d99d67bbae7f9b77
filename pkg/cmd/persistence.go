package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zapflow/zapflow/pkg/persistence"
	"github.com/zapflow/zapflow/pkg/persistence/file"
	"github.com/zapflow/zapflow/pkg/persistence/postgresql"
)

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize postgres persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
	}
}

package logging

import (
	"context"

	"subforge/internal/services"
)

func withTestOperation(ctx context.Context, id, stage string) context.Context {
	ctx = services.WithOperationID(ctx, id)
	return services.WithStage(ctx, stage)
}

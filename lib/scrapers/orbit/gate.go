package orbit

import (
	"context"
	"slices"
)

// gated runs op only once the given connect stage has succeeded. If the
// stage carries an envelope error the operation is never invoked and
// the stage's warnings and error are returned as-is. On success op
// receives a copy of the stage's warnings so its own appends come after
// the upstream ones.
func gated[T any](
	ctx context.Context,
	connect func(context.Context) (Result[bool], error),
	op func(context.Context, []WarningKind) (Result[T], error),
) (Result[T], error) {
	res, err := connect(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	if !res.Ok() {
		return failure[T](slices.Clone(res.Warnings), res.Error), nil
	}
	return op(ctx, slices.Clone(res.Warnings))
}

// Package selection implements the daily selection policy:
// override, then today's queue entry, then a random pool member.
package selection

import (
	"context"
	"fmt"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/store"
)

// SelectForToday picks the level for today and consumes it from st.
// On success exactly one tier has been mutated; on failure none has.
func SelectForToday(ctx context.Context, st store.SelectionStore, today domain.DateKey) (domain.Selection, error) {
	ref, ok, err := st.TakeOverride(ctx)
	if err != nil {
		return domain.Selection{}, err
	}
	if ok {
		return domain.Selection{Ref: ref, Source: domain.SourceOverride}, nil
	}

	ref, ok, err = st.Consume(ctx, today)
	if err != nil {
		return domain.Selection{}, err
	}
	if ok {
		return domain.Selection{Ref: ref, Source: domain.SourceQueue}, nil
	}

	entry, err := st.TakeRandom(ctx)
	if errors.Is(err, store.ErrPoolEmpty) {
		return domain.Selection{}, errors.Wrap(err, errors.CodeNothingToBlend,
			fmt.Sprintf("no override, nothing queued for %s and the random pool is empty", today))
	}
	if err != nil {
		return domain.Selection{}, err
	}
	return domain.Selection{Ref: entry.Ref, Source: domain.SourcePool}, nil
}

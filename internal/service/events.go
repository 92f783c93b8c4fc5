package service

import (
	"github.com/dailyblend/blender/internal/domain"
	domainerrors "github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/sse"
)

// EventEmitter receives blend activity for live subscribers.
type EventEmitter interface {
	Emit(event sse.Event)
}

type noopEmitter struct{}

func (noopEmitter) Emit(sse.Event) {}

// failureEvent describes err for subscribers. The stage comes from a
// StageError in the chain when there is one.
func failureEvent(runID string, ref domain.LevelReference, err error) sse.Event {
	data := sse.BlendFailedEventData{
		RunID:   runID,
		Level:   ref,
		Code:    string(domainerrors.CodeOf(err)),
		Message: err.Error(),
	}
	var stageErr *StageError
	if domainerrors.As(err, &stageErr) {
		data.Stage = stageErr.Stage
	}
	return sse.NewBlendFailedEvent(data)
}

func selectionEvent(target, action string, ref domain.LevelReference) sse.SelectionChangedEventData {
	return sse.SelectionChangedEventData{Target: target, Action: action, Level: ref}
}

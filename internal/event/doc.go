// Package event provides the editor's topic-based event bus.
//
// Publishers send an Event on a dot-separated topic; subscribers register
// a Handler for a topic pattern that may contain wildcards (see package
// topic). Delivery is synchronous and in priority order. A handler that
// panics is recovered and logged, and the remaining handlers still run.
//
// The workspace publishes document changes, loads, saves and mode
// switches here so plugins, the highlighter and the UI can react without
// referencing each other.
//
//	bus := event.NewBus(event.WithLogger(log))
//	sub, _ := bus.Subscribe("document.*", event.HandlerFunc(func(ctx context.Context, ev event.Event) error {
//	    log.Info("document event", "topic", ev.Topic)
//	    return nil
//	}))
//	defer sub.Cancel()
package event

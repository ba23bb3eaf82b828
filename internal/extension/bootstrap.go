package extension

import "context"

// placeholderHandler is bound to a re-materialized hook until a real
// code-based registration calls ReplacePlaceholder. It observes nothing
// and vetoes nothing, matching the "does not run yet" intent for a hook
// whose extension code has not registered this process run.
func placeholderHandler(Context) Result { return Result{} }

// Bootstrap loads every enabled extension's hook bindings from the Store
// and re-materializes each one as a placeholder registration sharing the
// persisted registration id, so that a later code-based registration for
// the same extension can find and replace it in place (spec §4.7
// "Persisted extensions are re-materialized into in-memory placeholder
// handlers on startup; code-based registrations replace placeholders").
func Bootstrap(ctx context.Context, engine *Engine, store Store) error {
	records, err := store.ListExtensions(ctx)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if !rec.Enabled {
			continue
		}
		for _, binding := range rec.Hooks {
			engine.registerPlaceholder(binding, rec.ID)
		}
	}

	webhooks, err := store.ListWebhooks(ctx)
	if err != nil {
		return err
	}
	if engine.webhooks != nil {
		for _, w := range webhooks {
			engine.webhooks.Register(*w)
		}
	}
	return nil
}

// registerPlaceholder inserts a binding at its original registration id
// and priority instead of minting a new id, preserving RegisterHook's
// ordinary priority-sort behavior for anything registered afterward.
func (e *Engine) registerPlaceholder(binding HookBinding, extensionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byPoint[binding.Point] = append(e.byPoint[binding.Point], Registration{
		ID: binding.RegistrationID, Point: binding.Point, Priority: binding.Priority,
		Semantics: binding.Semantics, ExtensionID: extensionID, Handler: placeholderHandler,
	})
	sortByPriority(e.byPoint[binding.Point])
}

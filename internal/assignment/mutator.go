package assignment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/kontrib/internal/kontent"
)

// Mutator writes contributor lists to variants.
type Mutator struct {
	cms    CMS
	logger *slog.Logger
}

// NewMutator creates a Mutator.
func NewMutator(cms CMS, logger *slog.Logger) *Mutator {
	return &Mutator{
		cms:    cms,
		logger: logger,
	}
}

// ApplyContributors replaces the contributor list of v with ids through a full
// upsert that carries the existing elements and workflow pointer. The language
// identifier is used as given first; a rejection is retried once with the
// canonical language id. Both attempts send the same payload. Failure is a
// *WriteError.
func (m *Mutator) ApplyContributors(
	ctx context.Context,
	v *kontent.Variant,
	itemID string,
	lang LanguageTarget,
	ids []string,
) (*kontent.Variant, error) {
	payload := v.Payload(ids)

	stored, err := m.cms.UpsertVariant(ctx, itemID, lang.Given, payload)
	if err == nil {
		return stored, nil
	}

	attempts := []error{classifyWrite(fmt.Errorf("upsert %s: %w", lang.Given, err))}

	canonical, ok := lang.Canonical()
	if !ok || !kontent.IsRejection(err) {
		return nil, &WriteError{Attempts: attempts}
	}

	m.logger.Debug("upsert rejected, retrying with language id",
		"item", itemID,
		"language", lang.Given.String(),
		"language_id", canonical.String(),
	)

	stored, err = m.cms.UpsertVariant(ctx, itemID, canonical, payload)
	if err == nil {
		return stored, nil
	}

	attempts = append(attempts, classifyWrite(fmt.Errorf("upsert %s: %w", canonical, err)))
	return nil, &WriteError{Attempts: attempts}
}

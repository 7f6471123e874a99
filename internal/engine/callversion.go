package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/loomstore/loom/internal/dbadapter"
)

// callVersionDTO is the sources-table record retaining a call's
// semantic/content version verbatim, for provenance auditing — a
// supplemental feature beyond the distilled spec's Call record, since the
// 7-column calls table (spec §6) has no room for it directly.
type callVersionDTO struct {
	SemanticVersion string `json:"semantic_version,omitempty"`
	ContentVersion  string `json:"content_version,omitempty"`
}

func callVersionKey(callHID string) string {
	return "callversion:" + callHID
}

func (s *Storage) setCallVersion(ctx context.Context, q dbadapter.Queryer, callHID, semanticVersion, contentVersion string) error {
	if semanticVersion == "" && contentVersion == "" {
		return nil
	}
	data, err := json.Marshal(callVersionDTO{SemanticVersion: semanticVersion, ContentVersion: contentVersion})
	if err != nil {
		return fmt.Errorf("engine: marshal call version %s: %w", callHID, err)
	}
	s.sourceCache.Set(callVersionKey(callHID), data)
	return nil
}

func (s *Storage) getCallVersion(ctx context.Context, q dbadapter.Queryer, callHID string) (semanticVersion, contentVersion string, err error) {
	data, ok, err := s.sourceCache.GetTx(ctx, q, callVersionKey(callHID))
	if err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", nil
	}
	var dto callVersionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return "", "", fmt.Errorf("engine: unmarshal call version %s: %w", callHID, err)
	}
	return dto.SemanticVersion, dto.ContentVersion, nil
}

// Package credentials resolves vendor API keys. Keys set in the
// environment win; otherwise the integration_tokens table is consulted,
// which lets operators rotate keys without a redeploy.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"atelier/internal/infra"
	"atelier/internal/sqlinline"
)

const (
	ProviderFashn = "fashn"
	ProviderEdit  = "edit"
)

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) FashnAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderFashn)
}

func (s *Store) EditAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderEdit)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetToken(ctx context.Context, provider, key string) error {
	provider = strings.TrimSpace(provider)
	if provider != ProviderFashn && provider != ProviderEdit {
		return errors.New("unknown provider: " + provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("api key is required")
	}
	return s.upsert(ctx, provider, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}

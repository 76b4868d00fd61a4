package auditor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fox-one/pkg/property"
)

// MembershipStore persists the set of markets an account has entered
type MembershipStore interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Save(ctx context.Context, userID string, assetIDs []string) error
}

type propertyMembershipStore struct {
	property property.Store
}

// NewMembershipStore membership store over the shared property table
func NewMembershipStore(propertyStore property.Store) MembershipStore {
	return &propertyMembershipStore{property: propertyStore}
}

func (s *propertyMembershipStore) Load(ctx context.Context, userID string) ([]string, error) {
	v, err := s.property.Get(ctx, membershipKey(userID))
	if err != nil {
		return nil, err
	}

	raw := v.String()
	if raw == "" {
		return []string{}, nil
	}

	var entered []string
	if err := json.Unmarshal([]byte(raw), &entered); err != nil {
		return nil, err
	}

	return entered, nil
}

func (s *propertyMembershipStore) Save(ctx context.Context, userID string, assetIDs []string) error {
	data, err := json.Marshal(assetIDs)
	if err != nil {
		return err
	}

	return s.property.Save(ctx, membershipKey(userID), string(data))
}

func membershipKey(userID string) string {
	return fmt.Sprintf("auditor:markets:%s", userID)
}

package businessflow

import (
	"context"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyScheme = "sk"

// APIKeyFlow manages API keys and authenticates requests that present one.
type APIKeyFlow interface {
	CreateAPIKey(ctx context.Context, actor *Actor, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error)
	ListAPIKeys(ctx context.Context, actor *Actor) (*dto.ListAPIKeysResponse, error)
	RevokeAPIKey(ctx context.Context, actor *Actor, id uint) error
	Authenticate(ctx context.Context, rawKey string) (*Actor, error)
}

type APIKeyFlowImpl struct {
	keys       repository.APIKeyRepository
	bcryptCost int
	now        func() time.Time
}

func NewAPIKeyFlow(keys repository.APIKeyRepository, bcryptCost int) APIKeyFlow {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &APIKeyFlowImpl{keys: keys, bcryptCost: bcryptCost, now: utils.UTCNow}
}

func (f *APIKeyFlowImpl) CreateAPIKey(ctx context.Context, actor *Actor, req *dto.CreateAPIKeyRequest) (*dto.CreateAPIKeyResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	prefix := randomHex()[:utils.APIKeyPrefixLength]
	secret := randomHex()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), f.bcryptCost)
	if err != nil {
		return nil, NewBusinessError("API_KEY_HASH_FAILED", "Failed to hash api key", err)
	}

	key := &models.APIKey{
		UserID:  actor.UserID,
		Name:    strings.TrimSpace(req.Name),
		Prefix:  prefix,
		KeyHash: string(hash),
	}
	if err := f.keys.Save(ctx, key); err != nil {
		return nil, NewBusinessError("API_KEY_CREATE_FAILED", "Failed to create api key", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": actor.UserID, "api_key_id": key.ID, "prefix": prefix}).Info("api key created")

	return &dto.CreateAPIKeyResponse{
		ID:        key.ID,
		Name:      key.Name,
		Key:       apiKeyScheme + "_" + prefix + "_" + secret,
		Prefix:    prefix,
		CreatedAt: key.CreatedAt,
	}, nil
}

func (f *APIKeyFlowImpl) ListAPIKeys(ctx context.Context, actor *Actor) (*dto.ListAPIKeysResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	keys, err := f.keys.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, NewBusinessError("API_KEY_LIST_FAILED", "Failed to list api keys", err)
	}
	res := &dto.ListAPIKeysResponse{Keys: make([]dto.APIKeyResponse, 0, len(keys))}
	for _, k := range keys {
		res.Keys = append(res.Keys, dto.APIKeyResponse{
			ID:         k.ID,
			Name:       k.Name,
			Prefix:     k.Prefix,
			LastUsedAt: k.LastUsedAt,
			CreatedAt:  k.CreatedAt,
		})
	}
	return res, nil
}

func (f *APIKeyFlowImpl) RevokeAPIKey(ctx context.Context, actor *Actor, id uint) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	key, err := f.keys.ByID(ctx, id)
	if err != nil {
		return NewBusinessError("API_KEY_LOOKUP_FAILED", "Failed to lookup api key", err)
	}
	// Someone else's key is reported as missing.
	if key == nil || key.UserID != actor.UserID || !key.IsActive() {
		return ErrAPIKeyNotFound
	}
	if err := f.keys.Revoke(ctx, id, f.now()); err != nil {
		return NewBusinessError("API_KEY_REVOKE_FAILED", "Failed to revoke api key", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": actor.UserID, "api_key_id": id}).Info("api key revoked")
	return nil
}

// Authenticate resolves a presented key of the form sk_<prefix>_<secret>
// to the actor that owns it.
func (f *APIKeyFlowImpl) Authenticate(ctx context.Context, rawKey string) (*Actor, error) {
	prefix, secret, ok := parseAPIKey(rawKey)
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	key, err := f.keys.ByPrefix(ctx, prefix)
	if err != nil {
		return nil, NewBusinessError("API_KEY_LOOKUP_FAILED", "Failed to lookup api key", err)
	}
	if key == nil || !key.IsActive() {
		return nil, ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(secret)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	if err := f.keys.TouchLastUsed(ctx, key.ID, f.now()); err != nil {
		logrus.WithError(err).WithField("api_key_id", key.ID).Warn("failed to update api key last used")
	}

	tier := models.TierFree
	if key.User != nil {
		tier = key.User.Tier
	}
	return &Actor{UserID: key.UserID, Tier: tier, APIKeyID: utils.ToPtr(key.ID)}, nil
}

func parseAPIKey(raw string) (prefix, secret string, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(raw), "_", 3)
	if len(parts) != 3 || parts[0] != apiKeyScheme {
		return "", "", false
	}
	if len(parts[1]) != utils.APIKeyPrefixLength || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Package mongo is an account.Store on MongoDB.
//
// Each account is one document, so every per-account transition is a single
// atomic update. The lockout failure transition uses an aggregation-pipeline
// update that evaluates the expired-lock branch and the increment branch
// against the same pre-image.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrUnavailable wraps driver and server failures.
var ErrUnavailable = errors.New("mongo unavailable")

// DefaultCollection is used when Options.Collection is empty.
const DefaultCollection = "admins"

type Options struct {
	Database   string
	Collection string
}

// Store implements account.Store.
type Store struct {
	coll *mongo.Collection
}

func NewStore(client *mongo.Client, opts Options) *Store {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	return &Store{coll: client.Database(opts.Database).Collection(opts.Collection)}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// EnsureIndexes creates the unique email index and the maintenance indexes.
// It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "lockUntil", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "refreshTokens.expiresAt", Value: 1}}},
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, a *account.Account) error {
	if _, err := s.coll.InsertOne(ctx, toDocument(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return account.ErrDuplicateEmail
		}
		return unavailable(err)
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string, includeCredential bool) (*account.Account, error) {
	return s.findOne(ctx, bson.M{"email": email}, includeCredential)
}

func (s *Store) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id}, false)
}

func (s *Store) findOne(ctx context.Context, filter bson.M, includeCredential bool) (*account.Account, error) {
	opts := options.FindOne()
	if !includeCredential {
		opts.SetProjection(bson.M{"passwordHash": 0})
	}

	var doc document
	if err := s.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return doc.toAccount(), nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return s.updateExisting(ctx, id, bson.M{"$set": bson.M{
		"passwordHash":      hash,
		"passwordChangedAt": changedAt.UTC(),
		"updatedAt":         changedAt.UTC(),
	}})
}

func (s *Store) RehashPassword(ctx context.Context, id, hash string, now time.Time) error {
	return s.updateExisting(ctx, id, bson.M{"$set": bson.M{
		"passwordHash": hash,
		"updatedAt":    now.UTC(),
	}})
}

func (s *Store) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	return s.updateExisting(ctx, id, bson.M{"$set": bson.M{
		"isActive":  active,
		"updatedAt": now.UTC(),
	}})
}

func (s *Store) IncrementLoginAttempts(ctx context.Context, id string, p account.LockoutPolicy, now time.Time) (account.LockState, error) {
	now = now.UTC()
	hasLock := bson.D{{Key: "$gt", Value: bson.A{"$lockUntil", nil}}}
	expired := bson.D{{Key: "$and", Value: bson.A{hasLock, bson.D{{Key: "$lte", Value: bson.A{"$lockUntil", now}}}}}}
	next := bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$loginAttempts", 0}}}, 1}}}
	startLock := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$not", Value: bson.A{hasLock}}},
		bson.D{{Key: "$gte", Value: bson.A{next, p.MaxAttempts}}},
	}}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "loginAttempts", Value: bson.D{{Key: "$cond", Value: bson.A{expired, 1, next}}}},
			{Key: "lockUntil", Value: bson.D{{Key: "$cond", Value: bson.A{
				expired,
				"$$REMOVE",
				bson.D{{Key: "$cond", Value: bson.A{startLock, now.Add(p.LockDuration), "$lockUntil"}}},
			}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"loginAttempts": 1, "lockUntil": 1})

	var doc struct {
		LoginAttempts int        `bson:"loginAttempts"`
		LockUntil     *time.Time `bson:"lockUntil,omitempty"`
	}
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return account.LockState{}, account.ErrNotFound
		}
		return account.LockState{}, unavailable(err)
	}
	return account.LockState{Attempts: doc.LoginAttempts, LockUntil: derefTime(doc.LockUntil)}, nil
}

func (s *Store) ResetLoginAttempts(ctx context.Context, id string, now time.Time) error {
	return s.updateExisting(ctx, id, bson.M{
		"$set":   bson.M{"loginAttempts": 0, "lastLogin": now.UTC(), "updatedAt": now.UTC()},
		"$unset": bson.M{"lockUntil": ""},
	})
}

func (s *Store) UnlockAccount(ctx context.Context, id string, now time.Time) error {
	return s.updateExisting(ctx, id, bson.M{
		"$set":   bson.M{"loginAttempts": 0, "updatedAt": now.UTC()},
		"$unset": bson.M{"lockUntil": ""},
	})
}

// AddRefreshToken pushes only when the digest is absent, in one update.
func (s *Store) AddRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	digest := account.TokenDigest(token)
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "refreshTokens.digest": bson.M{"$ne": digest}},
		bson.M{"$push": bson.M{"refreshTokens": tokenDoc{Digest: digest, ExpiresAt: expiresAt.UTC()}}},
	)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Either the account is missing or the token is already whitelisted.
	n, err := s.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return unavailable(err)
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveRefreshToken(ctx context.Context, id, token string) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$pull": bson.M{"refreshTokens": bson.M{"digest": account.TokenDigest(token)}}},
	)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) HasRefreshToken(ctx context.Context, id, token string, now time.Time) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{
		"_id": id,
		"refreshTokens": bson.M{"$elemMatch": bson.M{
			"digest":    account.TokenDigest(token),
			"expiresAt": bson.M{"$gt": now.UTC()},
		}},
	})
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *Store) ClearAllRefreshTokens(ctx context.Context, id string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"refreshTokens": bson.A{}}})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) FindAccountsWithExpiredLocks(ctx context.Context, now time.Time) ([]*account.Account, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"lockUntil": bson.M{"$lte": now.UTC()}},
		options.Find().SetProjection(bson.M{"passwordHash": 0}),
	)
	if err != nil {
		return nil, unavailable(err)
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable(err)
	}
	out := make([]*account.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAccount())
	}
	return out, nil
}

func (s *Store) UnlockExpiredAccounts(ctx context.Context, now time.Time) (int, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"lockUntil": bson.M{"$lte": now.UTC()}},
		bson.M{
			"$set":   bson.M{"loginAttempts": 0, "updatedAt": now.UTC()},
			"$unset": bson.M{"lockUntil": ""},
		},
	)
	if err != nil {
		return 0, unavailable(err)
	}
	return int(res.ModifiedCount), nil
}

// CleanupExpiredTokens counts the expired entries, then pulls them. Tokens
// that expire between the two steps are pulled but not counted.
func (s *Store) CleanupExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()
	filter := bson.M{"refreshTokens.expiresAt": bson.M{"$lte": now}}

	cur, err := s.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$project", Value: bson.D{{Key: "n", Value: bson.D{{Key: "$size", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: "$refreshTokens"},
			{Key: "cond", Value: bson.D{{Key: "$lte", Value: bson.A{"$$this.expiresAt", now}}}},
		}}}}}}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: nil}, {Key: "total", Value: bson.D{{Key: "$sum", Value: "$n"}}}}}},
	})
	if err != nil {
		return 0, unavailable(err)
	}
	var totals []struct {
		Total int `bson:"total"`
	}
	if err := cur.All(ctx, &totals); err != nil {
		return 0, unavailable(err)
	}

	if _, err := s.coll.UpdateMany(ctx, filter, bson.M{
		"$pull": bson.M{"refreshTokens": bson.M{"expiresAt": bson.M{"$lte": now}}},
	}); err != nil {
		return 0, unavailable(err)
	}

	if len(totals) == 0 {
		return 0, nil
	}
	return totals[0].Total, nil
}

func (s *Store) updateExisting(ctx context.Context, id string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return unavailable(err)
	}
	if res.MatchedCount == 0 {
		return account.ErrNotFound
	}
	return nil
}

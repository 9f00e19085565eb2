package repo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/tazhibayda/smartfarm-api/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Users is the user collection seen through Store.
type Users struct{ s *Store }

func (s *Store) Users() *Users { return &Users{s: s} }

func (r *Users) findOne(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	ctx, cancel, sp := r.s.op(ctx, op)
	defer cancel()
	var u domain.User
	err := r.s.colUsers.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, done(sp, nil)
	}
	if err != nil {
		return nil, done(sp, err)
	}
	return &u, done(sp, nil)
}

func (r *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	return r.findOne(ctx, "mongo.users.find_by_id", bson.M{"_id": id})
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "mongo.users.find_by_email", bson.M{"email": email})
}

func (r *Users) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "mongo.users.find_by_username", bson.M{"username": username})
}

func (r *Users) FindByPublicID(ctx context.Context, publicID string) (*domain.User, error) {
	return r.findOne(ctx, "mongo.users.find_by_public_id", bson.M{"public_id": publicID})
}

func (r *Users) FindByLink(ctx context.Context, p domain.Provider, providerUserID string) (*domain.User, error) {
	return r.findOne(ctx, "mongo.users.find_by_link", bson.M{"link_keys": domain.LinkKey(p, providerUserID)})
}

// MaxPublicID returns the greatest public id under prefix, or "" when there is none.
// Ids are zero padded, so lexical order is numeric order.
func (r *Users) MaxPublicID(ctx context.Context, prefix string) (string, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.users.max_public_id")
	defer cancel()
	var doc struct {
		PublicID string `bson:"public_id"`
	}
	err := r.s.colUsers.FindOne(ctx,
		bson.M{"public_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix) + `\d+$`}},
		options.FindOne().
			SetSort(bson.D{{Key: "public_id", Value: -1}}).
			SetProjection(bson.M{"public_id": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", done(sp, nil)
	}
	if err != nil {
		return "", done(sp, err)
	}
	return doc.PublicID, done(sp, nil)
}

func (r *Users) Insert(ctx context.Context, u *domain.User) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.users.insert")
	defer cancel()
	sp.SetTag("public_id", u.PublicID)

	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.SyncLinkKeys()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	_, err := r.s.colUsers.InsertOne(ctx, u)
	return done(sp, err)
}

// Update replaces the stored document with u in one write.
func (r *Users) Update(ctx context.Context, u *domain.User) error {
	ctx, cancel, sp := r.s.op(ctx, "mongo.users.update")
	defer cancel()

	u.UpdatedAt = time.Now().UTC()
	u.SyncLinkKeys()
	res, err := r.s.colUsers.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if err != nil {
		return done(sp, err)
	}
	if res.MatchedCount == 0 {
		return done(sp, domain.NotFound("user"))
	}
	return done(sp, nil)
}

func (r *Users) List(ctx context.Context, f domain.UserFilter) ([]domain.User, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.users.list")
	defer cancel()
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Skip < 0 {
		f.Skip = 0
	}
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
		sp.SetTag("role", string(f.Role))
	}
	cur, err := r.s.colUsers.Find(ctx, filter,
		options.Find().SetLimit(int64(f.Limit)).SetSkip(int64(f.Skip)).
			SetSort(bson.D{{Key: "public_id", Value: 1}}),
	)
	if err != nil {
		return nil, done(sp, err)
	}
	defer cur.Close(ctx)

	out := []domain.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, done(sp, err)
	}
	return out, done(sp, nil)
}

func (r *Users) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	ctx, cancel, sp := r.s.op(ctx, "mongo.users.delete_many")
	defer cancel()
	sp.SetTag("count", len(ids))
	res, err := r.s.colUsers.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, done(sp, err)
	}
	return res.DeletedCount, done(sp, nil)
}

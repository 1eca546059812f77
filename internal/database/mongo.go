package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/circle/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the Store backed by MongoDB: one document per user with the friends
// and requests arrays embedded, and a posts collection.
type Mongo struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

var _ Store = (*Mongo)(nil)

type userDoc struct {
	ID                  string    `bson:"_id"`
	Name                string    `bson:"name"`
	Email               string    `bson:"email"`
	Password            string    `bson:"password"`
	AvatarURL           string    `bson:"avatar_url"`
	Friends             []string  `bson:"friends"`
	Requests            []string  `bson:"requests"`
	ResetPasswordToken  string    `bson:"reset_password_token,omitempty"`
	ResetPasswordExpire time.Time `bson:"reset_password_expire,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
}

type commentDoc struct {
	User    string `bson:"user"`
	Comment string `bson:"comment"`
}

type postDoc struct {
	ID        string       `bson:"_id"`
	OwnerID   string       `bson:"owner_id"`
	Caption   string       `bson:"caption"`
	ImageURL  string       `bson:"image_url"`
	Likes     []string     `bson:"likes"`
	Comments  []commentDoc `bson:"comments"`
	CreatedAt time.Time    `bson:"created_at"`
}

// ConnectMongo connects to uri, pings the server and ensures indexes on dbName.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(dbName)
	m := &Mongo{
		client: client,
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
	}
	if err := m.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

// EnsureIndexes creates the unique email index and lookup indexes. It is idempotent.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := m.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "reset_password_token", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	_, err = m.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create post indexes: %w", err)
	}
	return nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseIDs(strs []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(strs))
	for _, s := range strs {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:                  u.ID.String(),
		Name:                u.Name,
		Email:               u.Email,
		Password:            u.Password,
		AvatarURL:           u.AvatarURL,
		Friends:             idStrings(u.Friends.Slice()),
		Requests:            idStrings(u.Requests.Slice()),
		ResetPasswordToken:  u.ResetPasswordToken,
		ResetPasswordExpire: u.ResetPasswordExpire,
		CreatedAt:           u.CreatedAt,
	}
}

func (d userDoc) toModel() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user _id %q: %w", d.ID, err)
	}
	return &models.User{
		ID:                  id,
		Name:                d.Name,
		Email:               d.Email,
		Password:            d.Password,
		AvatarURL:           d.AvatarURL,
		Friends:             models.NewIDSet(parseIDs(d.Friends)...),
		Requests:            models.NewIDSet(parseIDs(d.Requests)...),
		ResetPasswordToken:  d.ResetPasswordToken,
		ResetPasswordExpire: d.ResetPasswordExpire,
		CreatedAt:           d.CreatedAt,
	}, nil
}

func (m *Mongo) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := m.users.InsertOne(ctx, toUserDoc(user))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *Mongo) findOneUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	err := m.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel()
}

func (m *Mongo) findUsers(ctx context.Context, filter bson.M) ([]*models.User, error) {
	cur, err := m.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (m *Mongo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findOneUser(ctx, bson.M{"_id": id.String()})
}

func (m *Mongo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findOneUser(ctx, bson.M{"email": email})
}

func (m *Mongo) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return m.findUsers(ctx, bson.M{"_id": bson.M{"$in": idStrings(ids)}})
}

func (m *Mongo) SearchUsers(ctx context.Context, name string) ([]*models.User, error) {
	return m.findUsers(ctx, bson.M{"name": bson.M{"$regex": regexp.QuoteMeta(name), "$options": "i"}})
}

// SaveUsers issues one ordered bulk write. Without a replica-set transaction the
// writes are not atomic: an error part way leaves earlier users updated.
func (m *Mongo) SaveUsers(ctx context.Context, users ...*models.User) error {
	if len(users) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(users))
	for _, u := range users {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": u.ID.String()}).
			SetUpdate(bson.M{"$set": bson.M{
				"name":       u.Name,
				"email":      u.Email,
				"avatar_url": u.AvatarURL,
				"friends":    idStrings(u.Friends.Slice()),
				"requests":   idStrings(u.Requests.Slice()),
			}}))
	}

	res, err := m.users.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	if res.MatchedCount < int64(countDistinct(users)) {
		return ErrNotFound
	}
	return nil
}

func countDistinct(users []*models.User) int {
	seen := make(models.IDSet, len(users))
	for _, u := range users {
		seen.Add(u.ID)
	}
	return seen.Len()
}

func (m *Mongo) updateUser(ctx context.Context, id uuid.UUID, update bson.M) error {
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id.String()}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	err := m.updateUser(ctx, id, bson.M{
		"$set":   bson.M{"password": hash},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (m *Mongo) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expires time.Time) error {
	update := bson.M{"$set": bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": expires,
	}}
	if tokenHash == "" {
		update = bson.M{"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""}}
	}
	if err := m.updateUser(ctx, id, update); err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return nil
}

func (m *Mongo) GetUserByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	if tokenHash == "" {
		return nil, ErrNotFound
	}
	return m.findOneUser(ctx, bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": now},
	})
}

func (m *Mongo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	sid := id.String()

	res, err := m.users.DeleteOne(ctx, bson.M{"_id": sid})
	if err != nil {
		return fmt.Errorf("failed to delete user %v: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to delete user %v: %w", id, ErrNotFound)
	}

	if _, err := m.users.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"friends": sid}, bson.M{"requests": sid}}},
		bson.M{"$pull": bson.M{"friends": sid, "requests": sid}},
	); err != nil {
		return fmt.Errorf("failed to detach user %v: %w", id, err)
	}
	if _, err := m.posts.DeleteMany(ctx, bson.M{"owner_id": sid}); err != nil {
		return fmt.Errorf("failed to delete posts of %v: %w", id, err)
	}
	if _, err := m.posts.UpdateMany(ctx,
		bson.M{"$or": bson.A{bson.M{"likes": sid}, bson.M{"comments.user": sid}}},
		bson.M{"$pull": bson.M{"likes": sid, "comments": bson.M{"user": sid}}},
	); err != nil {
		return fmt.Errorf("failed to strip likes/comments of %v: %w", id, err)
	}
	return nil
}

func (m *Mongo) GetPostsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Post, error) {
	cur, err := m.posts.Find(ctx, bson.M{"owner_id": ownerID.String()},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(docs))
	for _, d := range docs {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid post _id %q: %w", d.ID, err)
		}
		p := &models.Post{
			ID:        id,
			OwnerID:   ownerID,
			Caption:   d.Caption,
			ImageURL:  d.ImageURL,
			Likes:     parseIDs(d.Likes),
			Comments:  make([]models.Comment, 0, len(d.Comments)),
			CreatedAt: d.CreatedAt,
		}
		for _, c := range d.Comments {
			uid, err := uuid.Parse(c.User)
			if err != nil {
				continue
			}
			p.Comments = append(p.Comments, models.Comment{UserID: uid, Comment: c.Comment})
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// InsertPost is used by seeding and tests; the API only reads posts.
func (m *Mongo) InsertPost(ctx context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	doc := postDoc{
		ID:        post.ID.String(),
		OwnerID:   post.OwnerID.String(),
		Caption:   post.Caption,
		ImageURL:  post.ImageURL,
		Likes:     idStrings(post.Likes),
		Comments:  make([]commentDoc, 0, len(post.Comments)),
		CreatedAt: post.CreatedAt,
	}
	for _, c := range post.Comments {
		doc.Comments = append(doc.Comments, commentDoc{User: c.UserID.String(), Comment: c.Comment})
	}
	_, err := m.posts.InsertOne(ctx, doc)
	return err
}

func (m *Mongo) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = m.client.Disconnect(ctx)
}

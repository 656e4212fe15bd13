package mongodb

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/kelasku/kelasku/core/user"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	Role         string             `bson:"role"`
	PasswordHash []byte             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

type userRepository struct {
	col *mongo.Collection
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *mongo.Database) *userRepository {
	return &userRepository{col: db.Collection(usersCollection)}
}

func (repo userRepository) doc(usr user.User) userDoc {
	u := userDoc{
		Username:     usr.Username,
		Email:        usr.Email,
		Role:         usr.Role,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if oid, err := primitive.ObjectIDFromHex(usr.ID); err == nil {
		u.ID = oid
	}
	return u
}

func (repo userRepository) undoc(u userDoc) user.User {
	return user.User{
		ID:           u.ID.Hex(),
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// trapNoDocsErr maps the driver's "no documents" err to user.ErrNotFound
func (repo userRepository) trapNoDocsErr(err error, msg string) error {
	if err == mongo.ErrNoDocuments {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string) error {
	// email first: the registration contract reports the email conflict first
	if email != "" {
		n, err := repo.col.CountDocuments(ctx, bson.M{"email": email})
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
		if n > 0 {
			return user.ErrEmailExists
		}
	}
	if username != "" {
		n, err := repo.col.CountDocuments(ctx, bson.M{"username": username})
		if err != nil {
			return errors.Wrap(err, "checking username uniqueness")
		}
		if n > 0 {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	u := repo.doc(usr)
	u.ID = primitive.NewObjectID()
	if _, err := repo.col.InsertOne(ctx, u); err != nil {
		return user.User{}, repo.trapDupErr(err, "inserting user")
	}
	return repo.undoc(u), nil
}

// trapDupErr maps unique-index violations (a race lost after the uniqueness
// pre-check) to the matching conflict error.
func (repo userRepository) trapDupErr(err error, msg string) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				if strings.Contains(e.Message, "email") {
					return user.ErrEmailExists
				}
				return user.ErrUsernameExists
			}
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	cur, err := repo.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	defer func() { _ = cur.Close(ctx) }()

	users := make([]user.User, 0)
	for cur.Next(ctx) {
		var u userDoc
		if err = cur.Decode(&u); err != nil {
			return nil, errors.Wrap(err, "decoding user")
		}
		users = append(users, repo.undoc(u))
	}
	return users, errors.Wrap(cur.Err(), "querying users")
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	var u userDoc
	if err = repo.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return user.User{}, repo.trapNoDocsErr(err, "finding user by ID")
	}
	return repo.undoc(u), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var u userDoc
	if err := repo.col.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return user.User{}, repo.trapNoDocsErr(err, "finding user by username")
	}
	return repo.undoc(u), nil
}

func (repo userRepository) SetUserPassword(ctx context.Context, id string, hash []byte) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return user.ErrNotFound
	}
	res, err := repo.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set": bson.M{"password": hash, "updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return errors.Wrap(err, "updating user password")
	}
	if res.MatchedCount == 0 {
		return user.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SundayYogurt/identity_service/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const colUsers = "users"

// Index names double as the lookup key for duplicate-key errors.
var mongoIndexFields = map[string]string{
	"uidx_email":        FieldEmail,
	"uidx_nif":          FieldNIF,
	"uidx_company_cif":  FieldCIF,
	"uidx_code_pending": FieldCode,
}

type mongoUserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

// OpenMongo connects, pings and returns the database handle.
func OpenMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	return client, client.Database(dbName), nil
}

func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (UserRepository, error) {
	r := &mongoUserRepository{col: db.Collection(colUsers), now: time.Now}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *mongoUserRepository) ensureIndexes(ctx context.Context) error {
	present := func(field string) bson.D {
		return bson.D{{Key: field, Value: bson.D{{Key: "$type", Value: "string"}}}}
	}

	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uidx_email").SetUnique(true)},
		{
			Keys: bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetName("uidx_code_pending").SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: domain.StatusUnverified}}),
		},
		{
			Keys:    bson.D{{Key: "nif", Value: 1}},
			Options: options.Index().SetName("uidx_nif").SetUnique(true).SetPartialFilterExpression(present("nif")),
		},
		{
			Keys:    bson.D{{Key: "company.cif", Value: 1}},
			Options: options.Index().SetName("uidx_company_cif").SetUnique(true).SetPartialFilterExpression(present("company.cif")),
		},
	}

	// uidx_code covered verified accounts too; its partial successor frees a
	// code once the account is verified.
	if err := r.col.Indexes().DropOne(ctx, "uidx_code"); err != nil && !isMissingIndex(err) {
		return fmt.Errorf("drop legacy code index: %w", err)
	}
	if _, err := r.col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

// isMissingIndex reports IndexNotFound or NamespaceNotFound.
func isMissingIndex(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && (ce.Code == 27 || ce.Code == 26)
}

func (r *mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "repository.CreateUser"
	if user == nil || user.ID == "" {
		return nil, OpError(op, "nil user")
	}

	now := r.now()
	user.CreatedAt, user.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return nil, mongoError(op, err)
	}
	return user, nil
}

func (r *mongoUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "repository.FindUserByEmail", bson.D{{Key: "email", Value: email}})
}

func (r *mongoUserRepository) FindUserById(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "repository.FindUserById", bson.D{{Key: "_id", Value: id}})
}

func (r *mongoUserRepository) findOne(ctx context.Context, op string, filter bson.D) (*domain.User, error) {
	var user domain.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mongoError(op, err)
	}
	return &user, nil
}

func (r *mongoUserRepository) UpdateFields(ctx context.Context, id string, patch Patch) (*domain.User, error) {
	const op = "repository.UpdateFields"

	set := bson.D{{Key: "updated_at", Value: r.now()}}
	unset := bson.D{}

	switch p := patch.(type) {
	case PersonalDataPatch:
		set = append(set, bson.E{Key: "name", Value: p.Name}, bson.E{Key: "surnames", Value: p.Surnames})
		if p.NIF != nil {
			set = append(set, bson.E{Key: "nif", Value: *p.NIF})
		} else {
			unset = append(unset, bson.E{Key: "nif", Value: ""})
		}
	case CompanyPatch:
		set = append(set, bson.E{Key: "company", Value: p.Company})
	case LogoPatch:
		set = append(set, bson.E{Key: "company.logo", Value: p.Logo}, bson.E{Key: "company.url", Value: p.URL})
	default:
		return nil, OpError(op, fmt.Sprintf("unsupported patch %T", patch))
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	var user domain.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return nil, mongoError(op, err)
	}
	return &user, nil
}

func (r *mongoUserRepository) MarkVerified(ctx context.Context, id, code string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: domain.StatusUnverified},
		{Key: "attempts", Value: bson.D{{Key: "$gt", Value: 0}}},
		{Key: "code", Value: code},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: domain.StatusVerified},
		{Key: "attempts", Value: domain.MaxAttempts},
		{Key: "updated_at", Value: r.now()},
	}}}
	return r.conditionalUpdate(ctx, "repository.MarkVerified", id, filter, update)
}

func (r *mongoUserRepository) ConsumeAttempt(ctx context.Context, id string) (int, error) {
	const op = "repository.ConsumeAttempt"

	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: domain.StatusUnverified},
		{Key: "attempts", Value: bson.D{{Key: "$gt", Value: 0}}},
	}
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "attempts", Value: -1}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: r.now()}}},
	}

	var user domain.User
	err := r.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, r.classifyMiss(ctx, op, id)
	}
	if err != nil {
		return 0, mongoError(op, err)
	}
	return user.Attempts, nil
}

func (r *mongoUserRepository) ReissueCode(ctx context.Context, id, code string) error {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: domain.StatusUnverified},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "code", Value: code},
		{Key: "attempts", Value: domain.MaxAttempts},
		{Key: "updated_at", Value: r.now()},
	}}}
	return r.conditionalUpdate(ctx, "repository.ReissueCode", id, filter, update)
}

func (r *mongoUserRepository) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "deleted", Value: true},
			{Key: "updated_at", Value: r.now()},
		}}},
	)
	if err != nil {
		return mongoError("repository.SoftDeleteUser", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) HardDeleteUser(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return mongoError("repository.HardDeleteUser", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) conditionalUpdate(ctx context.Context, op, id string, filter, update bson.D) error {
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return mongoError(op, err)
	}
	if res.MatchedCount == 0 {
		return r.classifyMiss(ctx, op, id)
	}
	return nil
}

func (r *mongoUserRepository) classifyMiss(ctx context.Context, op, id string) error {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return mongoError(op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrPreconditionFailed
}

func mongoError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ConflictError{Op: op, Field: duplicateField(err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateField recovers the index name from the server's E11000 message.
func duplicateField(err error) string {
	msg := err.Error()
	for index, field := range mongoIndexFields {
		if strings.Contains(msg, "index: "+index+" ") {
			return field
		}
	}
	return ""
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"todo-api/internal/domain"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDocument) public() domain.User {
	return domain.User{
		ID:        d.ID,
		Username:  d.Username,
		Email:     d.Email,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type taskDocument struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Status      string    `bson:"status"`
	UserID      string    `bson:"user_id"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d taskDocument) task() domain.Task {
	return domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      domain.TaskStatus(d.Status),
		UserID:      d.UserID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// EnsureMongoIndexes crea los indices unicos de usuarios y el indice de
// listado de tareas. Es idempotente.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	_, err = db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("task indexes: %w", err)
	}
	return nil
}

func mapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", domain.ErrDuplicate, err)
	}
	return err
}

// MongoUserRepository implementa UserRepository sobre un document store.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

// publicProjection excluye el hash en el propio servidor de base de datos.
var publicProjection = bson.D{{Key: "password_hash", Value: 0}}

func (r *MongoUserRepository) Create(ctx context.Context, user domain.UserCredentials) error {
	_, err := r.coll.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	return mapMongoError(err)
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *MongoUserRepository) GetCredentialsByEmail(ctx context.Context, email string) (domain.UserCredentials, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&doc)
	if err != nil {
		return domain.UserCredentials{}, mapMongoError(err)
	}
	return domain.UserCredentials{User: doc.public(), PasswordHash: doc.PasswordHash}, nil
}

func (r *MongoUserRepository) List(ctx context.Context) ([]domain.User, error) {
	opts := options.Find().
		SetProjection(publicProjection).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := make([]domain.User, 0)
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		users = append(users, doc.public())
	}
	return users, cur.Err()
}

func (r *MongoUserRepository) getOne(ctx context.Context, filter bson.D) (domain.User, error) {
	var doc userDocument
	opts := options.FindOne().SetProjection(publicProjection)
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return domain.User{}, mapMongoError(err)
	}
	return doc.public(), nil
}

// MongoTaskRepository implementa TaskRepository sobre un document store.
type MongoTaskRepository struct {
	coll *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(tasksCollection)}
}

func ownedFilter(id, ownerID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "user_id", Value: ownerID}}
}

func (r *MongoTaskRepository) Create(ctx context.Context, task domain.Task) error {
	_, err := r.coll.InsertOne(ctx, taskDocument{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	})
	return mapMongoError(err)
}

func (r *MongoTaskRepository) GetByID(ctx context.Context, id, ownerID string) (domain.Task, error) {
	var doc taskDocument
	if err := r.coll.FindOne(ctx, ownedFilter(id, ownerID)).Decode(&doc); err != nil {
		return domain.Task{}, mapMongoError(err)
	}
	return doc.task(), nil
}

func (r *MongoTaskRepository) List(ctx context.Context, ownerID string, filter domain.TaskFilter) ([]domain.Task, error) {
	query := bson.D{{Key: "user_id", Value: ownerID}}
	if filter.Search != "" {
		pattern := bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(filter.Search)},
			{Key: "$options", Value: "i"},
		}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}})
	}
	if status := filter.StatusFilter(); status != "" {
		query = append(query, bson.E{Key: "status", Value: status})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	tasks := make([]domain.Task, 0)
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		tasks = append(tasks, doc.task())
	}
	return tasks, cur.Err()
}

func (r *MongoTaskRepository) Update(ctx context.Context, id, ownerID string, patch domain.TaskPatch, updatedAt time.Time) (domain.Task, error) {
	set := bson.D{{Key: "updated_at", Value: updatedAt}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*patch.Status)})
	}
	return r.findOneAndUpdate(ctx, ownedFilter(id, ownerID), bson.D{{Key: "$set", Value: set}})
}

func (r *MongoTaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(id, ownerID))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// ToggleStatus usa un update con pipeline para leer y escribir el status en
// la misma operacion del servidor.
func (r *MongoTaskRepository) ToggleStatus(ctx context.Context, id, ownerID string, updatedAt time.Time) (domain.Task, error) {
	flip := bson.D{{Key: "$cond", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{"$status", string(domain.StatusCompleted)}}},
		string(domain.StatusIncomplete),
		string(domain.StatusCompleted),
	}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: flip},
			{Key: "updated_at", Value: updatedAt},
		}}},
	}
	return r.findOneAndUpdate(ctx, ownedFilter(id, ownerID), pipeline)
}

func (r *MongoTaskRepository) CountByStatus(ctx context.Context, ownerID string) (int, int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "user_id", Value: ownerID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cur.Close(ctx)

	var total, completed int
	for cur.Next(ctx) {
		var bucket struct {
			Status string `bson:"_id"`
			N      int    `bson:"n"`
		}
		if err := cur.Decode(&bucket); err != nil {
			return 0, 0, err
		}
		total += bucket.N
		if bucket.Status == string(domain.StatusCompleted) {
			completed += bucket.N
		}
	}
	return total, completed, cur.Err()
}

func (r *MongoTaskRepository) findOneAndUpdate(ctx context.Context, filter bson.D, update any) (domain.Task, error) {
	var doc taskDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return domain.Task{}, mapMongoError(err)
	}
	return doc.task(), nil
}

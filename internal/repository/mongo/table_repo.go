package mongo

import (
	"alcyxob/fitness-dashboard/internal/domain"
	"alcyxob/fitness-dashboard/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// mongoTableStore maps gateway tables onto collections of the same name.
// Documents use "_id" for the row id; it is exposed as "id".
type mongoTableStore struct {
	db  *mongo.Database
	now func() time.Time
}

// NewMongoTableStore creates a TableStore backed by db.
func NewMongoTableStore(db *mongo.Database) repository.TableStore {
	return &mongoTableStore{db: db, now: time.Now}
}

// SelectAll returns every document of the collection, oldest first.
func (s *mongoTableStore) SelectAll(ctx context.Context, table string) ([]repository.Row, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(table).Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]repository.Row, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentToRow(doc))
	}
	return rows, nil
}

// Insert stores rows with InsertMany and returns them with their ids.
func (s *mongoTableStore) Insert(ctx context.Context, table string, rows []repository.Row) ([]repository.Row, error) {
	if len(rows) == 0 {
		return []repository.Row{}, nil
	}
	now := s.now()
	docs := make([]interface{}, 0, len(rows))
	stored := make([]repository.Row, 0, len(rows))
	for _, r := range rows {
		row := repository.CloneRow(r)
		repository.EnsureID(row)
		repository.EnsureCreatedAt(row, now)
		for k, v := range row {
			row[k] = repository.NormalizeValue(v)
		}
		docs = append(docs, rowToDocument(row))
		stored = append(stored, row)
	}

	if _, err := s.db.Collection(table).InsertMany(ctx, docs); err != nil {
		return nil, err
	}
	return stored, nil
}

func rowToDocument(row repository.Row) bson.M {
	doc := bson.M{}
	for k, v := range row {
		if k == "id" {
			doc["_id"] = v
			continue
		}
		doc[k] = v
	}
	return doc
}

func documentToRow(doc bson.M) repository.Row {
	row := repository.Row{}
	for k, v := range doc {
		if k == "_id" {
			row["id"] = v
			continue
		}
		row[k] = v
	}
	return row
}

// EnsureTableIndexes creates lookup indexes for the dashboard tables.
func EnsureTableIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(domain.TableWorkoutExercises).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "workout_id", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := db.Collection(domain.TableWorkouts).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

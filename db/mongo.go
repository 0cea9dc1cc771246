package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"spatiotemporal/models"
)

type MongoClient struct {
	client  *mongo.Client
	runs    *mongo.Collection
	results *mongo.Collection
}

func NewMongoClient(ctx context.Context, uri, database string) (*MongoClient, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	db := client.Database(database)
	results := db.Collection("file_results")

	_, err = results.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "runId", Value: 1}, {Key: "inputPath", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("error creating file_results index: %v", err)
	}

	return &MongoClient{client: client, runs: db.Collection("runs"), results: results}, nil
}

func (db *MongoClient) Close() error {
	if db.client != nil {
		return db.client.Disconnect(context.Background())
	}
	return nil
}

func (db *MongoClient) StartRun(ctx context.Context, run models.Run) error {
	if _, err := db.runs.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("error storing run: %v", err)
	}
	return nil
}

func (db *MongoClient) FinishRun(ctx context.Context, run models.Run) error {
	res, err := db.runs.UpdateOne(ctx,
		bson.M{"_id": run.ID},
		bson.M{"$set": bson.M{
			"finishedAt": run.FinishedAt,
			"processed":  run.Processed,
			"failed":     run.Failed,
		}},
	)
	if err != nil {
		return fmt.Errorf("error finishing run: %v", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("run %d not found", run.ID)
	}
	return nil
}

func (db *MongoClient) SaveResult(ctx context.Context, r models.FileResult) error {
	_, err := db.results.ReplaceOne(ctx,
		bson.M{"runId": r.RunID, "inputPath": r.InputPath},
		r,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("error storing file result: %v", err)
	}
	return nil
}

func (db *MongoClient) GetRun(ctx context.Context, id int64) (models.Run, bool, error) {
	var run models.Run
	err := db.runs.FindOne(ctx, bson.M{"_id": id}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Run{}, false, nil
		}
		return models.Run{}, false, fmt.Errorf("failed to retrieve run: %v", err)
	}
	return run, true, nil
}

func (db *MongoClient) ListRuns(ctx context.Context) ([]models.Run, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := db.runs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %v", err)
	}

	var runs []models.Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("error decoding runs: %v", err)
	}
	return runs, nil
}

func (db *MongoClient) GetResults(ctx context.Context, runID int64) ([]models.FileResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "inputPath", Value: 1}})
	cursor, err := db.results.Find(ctx, bson.M{"runId": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying file results: %v", err)
	}

	var results []models.FileResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("error decoding file results: %v", err)
	}
	return results, nil
}

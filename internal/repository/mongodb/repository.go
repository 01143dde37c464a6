package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/mamadbah2/ranch/internal/domain/models"
	"github.com/mamadbah2/ranch/internal/repository"
)

const (
	salesCollection      = "ventas"
	lotsCollection       = "lotes"
	animalsCollection    = "animales"
	clientsCollection    = "clientes"
	ranchesCollection    = "ranchos"
	activitiesCollection = "actividades"
	runsCollection       = "reconciliaciones"
)

// MongoDBRepository implements repository.Store on MongoDB. Lifecycle
// operations run inside multi-document transactions, so the server must be a
// replica set or sharded cluster.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ repository.Store = (*MongoDBRepository)(nil)

// NewMongoDBRepository connects to MongoDB and verifies the connection.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// EnsureIndexes creates the indexes the sale engine queries rely on. Manifest
// numbers are indexed but not unique: an amended folio is shared by every lot
// of the sale.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		salesCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "departure_date", Value: 1}}},
		},
		lotsCollection: {
			{Keys: bson.D{{Key: "manifest", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		animalsCollection: {
			{Keys: bson.D{{Key: "lot_id", Value: 1}}},
			{Keys: bson.D{{Key: "ear_tag", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, specs := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
		r.logger.Debug("indexes ensured", zap.String("collection", name), zap.Int("count", len(specs)))
	}
	return nil
}

// WithTransaction implements repository.Store.
func (r *MongoDBRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &tx{db: r.db})
	})
	return err
}

// Ping implements repository.Store.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongodb: %w", err)
	}
	return nil
}

// SaveReconciliationRun stores the outcome of a reconciler pass.
func (r *MongoDBRepository) SaveReconciliationRun(ctx context.Context, run models.ReconciliationRun) error {
	if _, err := r.db.Collection(runsCollection).InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to insert reconciliation run: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

type tx struct {
	db *mongo.Database
}

func (t *tx) GetSale(ctx context.Context, id string) (models.Sale, error) {
	var sale models.Sale
	if err := findOne(ctx, t.db.Collection(salesCollection), id, &sale); err != nil {
		return models.Sale{}, fmt.Errorf("sale %s: %w", id, err)
	}
	return sale, nil
}

func (t *tx) FindSales(ctx context.Context, filter repository.SaleFilter) ([]models.Sale, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DepartureBefore != nil {
		query["departure_date"] = bson.M{"$lt": *filter.DepartureBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "departure_date", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Sale](ctx, t.db.Collection(salesCollection), query, opts)
}

func (t *tx) InsertSale(ctx context.Context, sale models.Sale) error {
	if _, err := t.db.Collection(salesCollection).InsertOne(ctx, sale); err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (t *tx) SaveSales(ctx context.Context, sales []models.Sale) error {
	writes := make([]mongo.WriteModel, 0, len(sales))
	for _, sale := range sales {
		writes = append(writes, replaceByID(sale.ID, sale))
	}
	return bulkWrite(ctx, t.db.Collection(salesCollection), writes)
}

func (t *tx) DeleteSale(ctx context.Context, id string) error {
	res, err := t.db.Collection(salesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete sale %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("sale %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (t *tx) GetLots(ctx context.Context, ids []string) ([]models.Lot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	lots, err := findAll[models.Lot](ctx, t.db.Collection(lotsCollection), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}

	// $in does not preserve the requested order.
	byID := make(map[string]models.Lot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	ordered := make([]models.Lot, 0, len(lots))
	for _, id := range ids {
		if lot, ok := byID[id]; ok {
			ordered = append(ordered, lot)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (t *tx) FindLots(ctx context.Context, filter repository.LotFilter) ([]models.Lot, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Manifest != nil {
		query["manifest"] = *filter.Manifest
	}
	opts := options.Find().SetSort(bson.D{{Key: "manifest", Value: 1}})
	return findAll[models.Lot](ctx, t.db.Collection(lotsCollection), query, opts)
}

func (t *tx) InsertLot(ctx context.Context, lot models.Lot) error {
	if _, err := t.db.Collection(lotsCollection).InsertOne(ctx, lot); err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

func (t *tx) SaveLots(ctx context.Context, lots []models.Lot) error {
	writes := make([]mongo.WriteModel, 0, len(lots))
	for _, lot := range lots {
		writes = append(writes, replaceByID(lot.ID, lot))
	}
	return bulkWrite(ctx, t.db.Collection(lotsCollection), writes)
}

func (t *tx) FindAnimalsByLots(ctx context.Context, lotIDs []string) ([]models.Animal, error) {
	if len(lotIDs) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "ear_tag", Value: 1}})
	return findAll[models.Animal](ctx, t.db.Collection(animalsCollection), bson.M{"lot_id": bson.M{"$in": lotIDs}}, opts)
}

func (t *tx) SaveAnimals(ctx context.Context, animals []models.Animal) error {
	writes := make([]mongo.WriteModel, 0, len(animals))
	for _, animal := range animals {
		writes = append(writes, replaceByID(animal.ID, animal))
	}
	return bulkWrite(ctx, t.db.Collection(animalsCollection), writes)
}

func (t *tx) GetClient(ctx context.Context, id string) (models.Client, error) {
	var client models.Client
	if err := findOne(ctx, t.db.Collection(clientsCollection), id, &client); err != nil {
		return models.Client{}, fmt.Errorf("client %s: %w", id, err)
	}
	return client, nil
}

func (t *tx) GetRanch(ctx context.Context, id string) (models.Ranch, error) {
	var ranch models.Ranch
	if err := findOne(ctx, t.db.Collection(ranchesCollection), id, &ranch); err != nil {
		return models.Ranch{}, fmt.Errorf("ranch %s: %w", id, err)
	}
	return ranch, nil
}

func (t *tx) InsertActivity(ctx context.Context, activity models.Activity) error {
	if _, err := t.db.Collection(activitiesCollection).InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func findOne(ctx context.Context, coll *mongo.Collection, id string, out interface{}) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

func replaceByID(id string, doc interface{}) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(bson.M{"_id": id}).
		SetReplacement(doc).
		SetUpsert(true)
}

func bulkWrite(ctx context.Context, coll *mongo.Collection, writes []mongo.WriteModel) error {
	if len(writes) == 0 {
		return nil
	}
	if _, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		return fmt.Errorf("bulk write %s: %w", coll.Name(), err)
	}
	return nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenilmodi00/country-currency-api/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoStoreName = "MongoStore"

const (
	countriesCollection = "countries"
	metadataCollection  = "refresh_metadata"
)

// countryDocument is the BSON shape of a stored country
type countryDocument struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name"`
	NameKey         string             `bson:"name_key"`
	Capital         *string            `bson:"capital"`
	Region          *string            `bson:"region"`
	Population      int64              `bson:"population"`
	CurrencyCode    *string            `bson:"currency_code"`
	ExchangeRate    *float64           `bson:"exchange_rate"`
	EstimatedGDP    *float64           `bson:"estimated_gdp"`
	FlagURL         *string            `bson:"flag_url"`
	LastRefreshedAt time.Time          `bson:"last_refreshed_at"`
}

func (d *countryDocument) toModel() models.Country {
	return models.Country{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Capital:         d.Capital,
		Region:          d.Region,
		Population:      d.Population,
		CurrencyCode:    d.CurrencyCode,
		ExchangeRate:    d.ExchangeRate,
		EstimatedGDP:    d.EstimatedGDP,
		FlagURL:         d.FlagURL,
		LastRefreshedAt: d.LastRefreshedAt.UTC(),
	}
}

type metadataDocument struct {
	ID              string    `bson:"_id"`
	LastRefreshedAt time.Time `bson:"last_refreshed_at"`
}

// caseInsensitive matches strings ignoring case for equality filters
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// MongoStore implements CountryStore on a MongoDB database
type MongoStore struct {
	client    *mongo.Client
	countries *mongo.Collection
	metadata  *mongo.Collection
}

// ConnectMongo connects to uri, verifies the connection and ensures indexes
func ConnectMongo(ctx context.Context, uri, databaseName string) (*MongoStore, error) {
	store, err := DialMongo(ctx, uri, databaseName)
	if err != nil {
		return nil, err
	}

	if err := store.EnsureIndexes(ctx); err != nil {
		store.client.Disconnect(ctx)
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": mongoStoreName,
		"database":  databaseName,
	}).Info("Connected to MongoDB successfully")

	return store, nil
}

// DialMongo connects and pings without touching indexes
func DialMongo(ctx context.Context, uri, databaseName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewMongoStore(client, databaseName), nil
}

func NewMongoStore(client *mongo.Client, databaseName string) *MongoStore {
	db := client.Database(databaseName)
	return &MongoStore{
		client:    client,
		countries: db.Collection(countriesCollection),
		metadata:  db.Collection(metadataCollection),
	}
}

// EnsureIndexes creates the unique identity index and the filter indexes
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("countries_name_key_unique"),
		},
		{
			Keys:    bson.D{{Key: "region", Value: 1}},
			Options: options.Index().SetCollation(caseInsensitive).SetName("idx_countries_region"),
		},
		{
			Keys:    bson.D{{Key: "currency_code", Value: 1}},
			Options: options.Index().SetCollation(caseInsensitive).SetName("idx_countries_currency"),
		},
	}

	if _, err := s.countries.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating mongodb indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) UpsertCountry(ctx context.Context, country *models.Country) error {
	key := models.NameKey(country.Name)
	update := bson.M{
		"$set": bson.M{
			"name":              country.Name,
			"name_key":          key,
			"capital":           country.Capital,
			"region":            country.Region,
			"population":        country.Population,
			"currency_code":     country.CurrencyCode,
			"exchange_rate":     country.ExchangeRate,
			"estimated_gdp":     country.EstimatedGDP,
			"flag_url":          country.FlagURL,
			"last_refreshed_at": country.LastRefreshedAt.UTC(),
		},
	}

	var stored countryDocument
	err := s.countries.FindOneAndUpdate(
		ctx,
		bson.M{"name_key": key},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&stored)
	if err != nil {
		return storeError(fmt.Errorf("upsert country %q: %w", country.Name, err), mongoStoreName, "UpsertCountry")
	}

	country.ID = stored.ID.Hex()
	return nil
}

func (s *MongoStore) ListCountries(ctx context.Context, filter models.CountryFilter) ([]models.Country, error) {
	query := bson.M{}
	if filter.Region != "" {
		query["region"] = filter.Region
	}
	if filter.Currency != "" {
		query["currency_code"] = filter.Currency
	}

	findOptions := options.Find().SetCollation(caseInsensitive)
	if sortSpec := mongoSort(filter.Sort); sortSpec != nil {
		findOptions.SetSort(sortSpec)
	}

	cursor, err := s.countries.Find(ctx, query, findOptions)
	if err != nil {
		return nil, storeError(fmt.Errorf("list countries: %w", err), mongoStoreName, "ListCountries")
	}
	defer cursor.Close(ctx)

	countries := make([]models.Country, 0)
	for cursor.Next(ctx) {
		var doc countryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, storeError(fmt.Errorf("decode country: %w", err), mongoStoreName, "ListCountries")
		}
		countries = append(countries, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, storeError(err, mongoStoreName, "ListCountries")
	}

	return countries, nil
}

// mongoSort maps a sort key to a sort document. MongoDB orders null below
// every number, which matches NULLS LAST for descending GDP.
func mongoSort(sort string) bson.D {
	switch sort {
	case models.SortGDPDesc:
		return bson.D{{Key: "estimated_gdp", Value: -1}}
	case models.SortGDPAsc:
		return bson.D{{Key: "estimated_gdp", Value: 1}}
	case models.SortPopulationDesc:
		return bson.D{{Key: "population", Value: -1}}
	case models.SortPopulationAsc:
		return bson.D{{Key: "population", Value: 1}}
	}
	return nil
}

func (s *MongoStore) GetCountry(ctx context.Context, name string) (*models.Country, error) {
	var doc countryDocument
	err := s.countries.FindOne(ctx, bson.M{"name_key": models.NameKey(name)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, countryNotFound(mongoStoreName, "GetCountry")
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("get country %q: %w", name, err), mongoStoreName, "GetCountry")
	}

	country := doc.toModel()
	return &country, nil
}

func (s *MongoStore) DeleteCountry(ctx context.Context, name string) error {
	result, err := s.countries.DeleteOne(ctx, bson.M{"name_key": models.NameKey(name)})
	if err != nil {
		return storeError(fmt.Errorf("delete country %q: %w", name, err), mongoStoreName, "DeleteCountry")
	}
	if result.DeletedCount == 0 {
		return countryNotFound(mongoStoreName, "DeleteCountry")
	}

	logrus.WithFields(logrus.Fields{
		"component": mongoStoreName,
		"name":      name,
	}).Info("Deleted country")

	return nil
}

func (s *MongoStore) CountCountries(ctx context.Context) (int64, error) {
	count, err := s.countries.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storeError(fmt.Errorf("count countries: %w", err), mongoStoreName, "CountCountries")
	}
	return count, nil
}

func (s *MongoStore) SetLastRefreshedAt(ctx context.Context, ts time.Time) error {
	_, err := s.metadata.UpdateOne(
		ctx,
		bson.M{"_id": globalMarkerID},
		bson.M{"$set": bson.M{"last_refreshed_at": ts.UTC()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return storeError(fmt.Errorf("set refresh marker: %w", err), mongoStoreName, "SetLastRefreshedAt")
	}
	return nil
}

func (s *MongoStore) GetLastRefreshedAt(ctx context.Context) (*time.Time, error) {
	var doc metadataDocument
	err := s.metadata.FindOne(ctx, bson.M{"_id": globalMarkerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Errorf("get refresh marker: %w", err), mongoStoreName, "GetLastRefreshedAt")
	}

	ts := doc.LastRefreshedAt.UTC()
	return &ts, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	logrus.WithField("component", mongoStoreName).Info("MongoDB connection closed")
	return s.client.Disconnect(ctx)
}

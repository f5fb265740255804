package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "shorestay/internal/domain/listings"
	"shorestay/internal/domain/shared/money"
)

// ListingRepository reads the listing context the booking core needs. Catalog
// writes happen in another service; Save exists for seeding and tests.
type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("listings")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toListing(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

type listingDocument struct {
	ID             string `bson:"_id"`
	Host           string `bson:"host"`
	Title          string `bson:"title"`
	Location       string `bson:"location"`
	NightlyAmount  int64  `bson:"nightly_amount"`
	Currency       string `bson:"currency"`
	Timezone       string `bson:"timezone"`
	CheckInAfter   int    `bson:"check_in_after"`
	CheckOutBefore int    `bson:"check_out_before"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:             string(l.ID),
		Host:           string(l.Host),
		Title:          l.Title,
		Location:       l.Location,
		NightlyAmount:  l.NightlyRate.Amount,
		Currency:       l.NightlyRate.Currency,
		Timezone:       l.Timezone,
		CheckInAfter:   int(l.HouseRules.CheckInAfter),
		CheckOutBefore: int(l.HouseRules.CheckOutBefore),
		CreatedAt:      l.CreatedAt.UnixMilli(),
		UpdatedAt:      l.UpdatedAt.UnixMilli(),
	}
}

func (d listingDocument) toListing() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Host:        domainlistings.HostID(d.Host),
		Title:       d.Title,
		Location:    d.Location,
		NightlyRate: money.Money{Amount: d.NightlyAmount, Currency: d.Currency},
		Timezone:    d.Timezone,
		HouseRules: domainlistings.HouseRules{
			CheckInAfter:   domainlistings.TimeOfDay(d.CheckInAfter),
			CheckOutBefore: domainlistings.TimeOfDay(d.CheckOutBefore),
		},
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(d.UpdatedAt).UTC(),
	}
}

var _ domainlistings.Repository = (*ListingRepository)(nil)

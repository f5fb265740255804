package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "shorestay/internal/domain/listings"
	domainreservation "shorestay/internal/domain/reservation"
	domainrange "shorestay/internal/domain/shared/daterange"
	"shorestay/internal/domain/shared/money"
)

// ReservationRepository persists reservations with an optimistic version
// compare-and-set: every save filters on (_id, version) so concurrent
// transitions collide instead of overwriting each other.
type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{col: db.Collection("reservations")}
}

// EnsureIndexes creates the uniqueness constraints the state machine relies
// on: transaction and order ids are unique once assigned.
func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	partial := func(field string) *options.IndexOptions {
		return options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{field: bson.M{"$gt": ""}})
	}
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "transaction_id", Value: 1}}, Options: partial("transaction_id")},
		{Keys: bson.D{{Key: "order_id", Value: 1}}, Options: partial("order_id")},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}}},
	})
	return err
}

func (r *ReservationRepository) ByID(ctx context.Context, id domainreservation.ReservationID) (*domainreservation.Reservation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ReservationRepository) ByOrderID(ctx context.Context, orderID string) (*domainreservation.Reservation, error) {
	if orderID == "" {
		return nil, domainreservation.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"order_id": orderID})
}

func (r *ReservationRepository) ByTransactionID(ctx context.Context, transactionID string) (*domainreservation.Reservation, error) {
	if transactionID == "" {
		return nil, domainreservation.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"transaction_id": transactionID})
}

func (r *ReservationRepository) findOne(ctx context.Context, filter bson.M) (*domainreservation.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreservation.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *domainreservation.Reservation) error {
	doc := newReservationDocument(res)
	filter := bson.M{"_id": doc.ID, "version": res.Version}
	doc.Version = res.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	result, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "transaction_id") {
				return domainreservation.ErrDuplicateTransaction
			}
			return domainreservation.ErrConcurrentUpdate
		}
		return err
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return domainreservation.ErrConcurrentUpdate
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainreservation.Reservation, error) {
	return r.findMany(ctx, bson.M{"guest_id": guestID})
}

func (r *ReservationRepository) ListByListing(ctx context.Context, listingID domainlistings.ListingID) ([]*domainreservation.Reservation, error) {
	return r.findMany(ctx, bson.M{"listing_id": string(listingID)})
}

func (r *ReservationRepository) ConfirmedOverlapping(ctx context.Context, listingID domainlistings.ListingID, dr domainrange.DateRange) ([]*domainreservation.Reservation, error) {
	filter := bson.M{
		"listing_id":      string(listingID),
		"status":          string(domainreservation.StatusConfirmed),
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	return r.findMany(ctx, filter)
}

func (r *ReservationRepository) StalePending(ctx context.Context, olderThan time.Time) ([]*domainreservation.Reservation, error) {
	filter := bson.M{
		"status":     string(domainreservation.StatusPending),
		"created_at": bson.M{"$lt": olderThan.UnixMilli()},
	}
	return r.findMany(ctx, filter)
}

func (r *ReservationRepository) findMany(ctx context.Context, filter bson.M) ([]*domainreservation.Reservation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	out := make([]*domainreservation.Reservation, 0)
	for cursor.Next(ctx) {
		var doc reservationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type reservationDocument struct {
	ID             string        `bson:"_id"`
	ListingID      string        `bson:"listing_id"`
	GuestID        string        `bson:"guest_id"`
	GuestName      string        `bson:"guest_name"`
	GuestPhone     string        `bson:"guest_phone"`
	Adults         int           `bson:"adults"`
	Children       int           `bson:"children"`
	Infants        int           `bson:"infants"`
	Pets           int           `bson:"pets"`
	Range          rangeDocument `bson:"range"`
	Nights         int           `bson:"nights"`
	TotalAmount    int64         `bson:"total_amount"`
	Currency       string        `bson:"currency"`
	Status         string        `bson:"status"`
	PaymentStatus  string        `bson:"payment_status"`
	OrderID        string        `bson:"order_id"`
	TransactionID  string        `bson:"transaction_id"`
	PayerEmail     string        `bson:"payer_email"`
	CapturedAmount int64         `bson:"captured_amount"`
	CreatedAt      int64         `bson:"created_at"`
	UpdatedAt      int64         `bson:"updated_at"`
	Version        int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newReservationDocument(res *domainreservation.Reservation) reservationDocument {
	return reservationDocument{
		ID:             string(res.ID),
		ListingID:      string(res.ListingID),
		GuestID:        res.GuestID,
		GuestName:      res.GuestName,
		GuestPhone:     res.GuestPhone,
		Adults:         res.Occupancy.Adults,
		Children:       res.Occupancy.Children,
		Infants:        res.Occupancy.Infants,
		Pets:           res.Occupancy.Pets,
		Range:          rangeDocument{CheckIn: res.Range.CheckIn.UnixMilli(), CheckOut: res.Range.CheckOut.UnixMilli()},
		Nights:         res.Nights,
		TotalAmount:    res.Total.Amount,
		Currency:       res.Total.Currency,
		Status:         string(res.Status),
		PaymentStatus:  string(res.PaymentStatus),
		OrderID:        res.OrderID,
		TransactionID:  res.TransactionID,
		PayerEmail:     res.PayerEmail,
		CapturedAmount: res.CapturedAmount.Amount,
		CreatedAt:      res.CreatedAt.UnixMilli(),
		UpdatedAt:      res.UpdatedAt.UnixMilli(),
		Version:        res.Version,
	}
}

func (d reservationDocument) toAggregate() *domainreservation.Reservation {
	res := &domainreservation.Reservation{
		ID:         domainreservation.ReservationID(d.ID),
		ListingID:  domainlistings.ListingID(d.ListingID),
		GuestID:    d.GuestID,
		GuestName:  d.GuestName,
		GuestPhone: d.GuestPhone,
		Occupancy: domainreservation.Occupancy{
			Adults:   d.Adults,
			Children: d.Children,
			Infants:  d.Infants,
			Pets:     d.Pets,
		},
		Range:         domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Nights:        d.Nights,
		Total:         money.Money{Amount: d.TotalAmount, Currency: d.Currency},
		Status:        domainreservation.Status(d.Status),
		PaymentStatus: domainreservation.PaymentStatus(d.PaymentStatus),
		OrderID:       d.OrderID,
		TransactionID: d.TransactionID,
		PayerEmail:    d.PayerEmail,
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
		Version:       d.Version,
	}
	if d.CapturedAmount != 0 {
		res.CapturedAmount = money.Money{Amount: d.CapturedAmount, Currency: d.Currency}
	}
	return res
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainreservation.Repository = (*ReservationRepository)(nil)

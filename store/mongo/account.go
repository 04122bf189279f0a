package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avirel/letterdesk/store"
)

// accountDoc is the MongoDB document for an account.
type accountDoc struct {
	ID             bson.ObjectID `bson:"_id,omitempty"`
	Name           string        `bson:"name"`
	Address        string        `bson:"address"`
	CredentialHash []byte        `bson:"credential_hash"`
	Roles          []string      `bson:"roles"`
	Department     string        `bson:"department,omitempty"`
	Section        string        `bson:"section,omitempty"`
	Hosteller      bool          `bson:"hosteller"`
	HostelName     string        `bson:"hostel_name,omitempty"`
	RollNumber     string        `bson:"roll_number,omitempty"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

func docToAccount(doc *accountDoc) *store.Account {
	roles := make([]store.Role, len(doc.Roles))
	for i, r := range doc.Roles {
		roles[i] = store.Role(r)
	}
	return &store.Account{
		ID:             doc.ID.Hex(),
		Name:           doc.Name,
		Address:        doc.Address,
		CredentialHash: doc.CredentialHash,
		Roles:          roles,
		Department:     doc.Department,
		Section:        doc.Section,
		Hosteller:      doc.Hosteller,
		HostelName:     doc.HostelName,
		RollNumber:     doc.RollNumber,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func rolesToStrings(roles []store.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// CreateAccount creates an account. The unique address index turns a
// concurrent duplicate registration into ErrDuplicateEntry.
func (s *Store) CreateAccount(ctx context.Context, data store.AccountData) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	doc := &accountDoc{
		Name:           data.Name,
		Address:        data.Address,
		CredentialHash: data.CredentialHash,
		Roles:          rolesToStrings(data.Roles),
		Department:     data.Department,
		Section:        data.Section,
		Hosteller:      data.Hosteller,
		HostelName:     data.HostelName,
		RollNumber:     data.RollNumber,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	result, err := s.accounts.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, store.ErrDuplicateEntry
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	if oid, ok := result.InsertedID.(bson.ObjectID); ok {
		doc.ID = oid
	}
	return docToAccount(doc), nil
}

// GetAccount retrieves an account by internal id.
func (s *Store) GetAccount(ctx context.Context, id string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc accountDoc
	err = s.accounts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return docToAccount(&doc), nil
}

// GetAccountByAddress retrieves an account by external address.
func (s *Store) GetAccountByAddress(ctx context.Context, address string) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var doc accountDoc
	err := s.accounts.FindOne(ctx, bson.M{"address": address}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find account by address: %w", err)
	}
	return docToAccount(&doc), nil
}

// UpdateAccount applies a partial profile update.
func (s *Store) UpdateAccount(ctx context.Context, id string, upd store.AccountUpdate) (*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Department != nil {
		set["department"] = *upd.Department
	}
	if upd.Section != nil {
		set["section"] = *upd.Section
	}
	if upd.Hosteller != nil {
		set["hosteller"] = *upd.Hosteller
	}
	if upd.HostelName != nil {
		set["hostel_name"] = *upd.HostelName
	}
	if upd.RollNumber != nil {
		set["roll_number"] = *upd.RollNumber
	}
	if upd.Roles != nil {
		set["roles"] = rolesToStrings(upd.Roles)
	}

	opts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)
	var doc accountDoc
	err = s.accounts.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update account: %w", err)
	}
	return docToAccount(&doc), nil
}

// ListAccounts returns accounts in insertion order, optionally excluding
// accounts carrying the given role tag.
func (s *Store) ListAccounts(ctx context.Context, excludeRole store.Role) ([]*store.Account, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	filter := bson.M{}
	if excludeRole != "" {
		filter["roles"] = bson.M{"$ne": string(excludeRole)}
	}

	findOpts := mongoopts.Find().SetSort(bson.D{bson.E{Key: "_id", Value: 1}})
	cursor, err := s.accounts.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var accounts []*store.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		accounts = append(accounts, docToAccount(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

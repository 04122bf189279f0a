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

// formDoc is the embedded per-type form record.
type formDoc struct {
	RecipientID      string `bson:"recipient_id,omitempty"`
	StartDate        string `bson:"start_date,omitempty"`
	EndDate          string `bson:"end_date,omitempty"`
	Reason           string `bson:"reason,omitempty"`
	CompanyName      string `bson:"company_name,omitempty"`
	CompanyLocation  string `bson:"company_location,omitempty"`
	CollegeName      string `bson:"college_name,omitempty"`
	CollegeLocation  string `bson:"college_location,omitempty"`
	Date             string `bson:"date,omitempty"`
	NumberOfStudents string `bson:"number_of_students,omitempty"`
	Location         string `bson:"location,omitempty"`
	EditedContent    string `bson:"edited_content,omitempty"`
}

// signatureDoc is the embedded signature record. Its presence in the
// document is the signed/unsigned state.
type signatureDoc struct {
	Image      string    `bson:"image"`
	SignedBy   string    `bson:"signed_by"`
	SignedByID string    `bson:"signed_by_id"`
	SignedAt   time.Time `bson:"signed_at"`
}

// letterDoc is the MongoDB document for a letter.
type letterDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	OwnerID   string        `bson:"owner_id"`
	Name      string        `bson:"name"`
	Type      string        `bson:"type"`
	Form      formDoc       `bson:"form_data"`
	Signature *signatureDoc `bson:"signature_data,omitempty"`
	CreatedAt time.Time     `bson:"created_at"`
}

func docToLetter(doc *letterDoc) *store.Letter {
	letter := &store.Letter{
		ID:      doc.ID.Hex(),
		OwnerID: doc.OwnerID,
		Name:    doc.Name,
		Type:    store.LetterType(doc.Type),
		Form: store.FormData{
			RecipientID:      doc.Form.RecipientID,
			StartDate:        doc.Form.StartDate,
			EndDate:          doc.Form.EndDate,
			Reason:           doc.Form.Reason,
			CompanyName:      doc.Form.CompanyName,
			CompanyLocation:  doc.Form.CompanyLocation,
			CollegeName:      doc.Form.CollegeName,
			CollegeLocation:  doc.Form.CollegeLocation,
			Date:             doc.Form.Date,
			NumberOfStudents: doc.Form.NumberOfStudents,
			Location:         doc.Form.Location,
			EditedContent:    doc.Form.EditedContent,
		},
		CreatedAt: doc.CreatedAt,
	}
	if doc.Signature != nil {
		letter.Signature = &store.Signature{
			Image:      doc.Signature.Image,
			SignedBy:   doc.Signature.SignedBy,
			SignedByID: doc.Signature.SignedByID,
			SignedAt:   doc.Signature.SignedAt,
		}
	}
	return letter
}

func formToDoc(f store.FormData) formDoc {
	return formDoc{
		RecipientID:      f.RecipientID,
		StartDate:        f.StartDate,
		EndDate:          f.EndDate,
		Reason:           f.Reason,
		CompanyName:      f.CompanyName,
		CompanyLocation:  f.CompanyLocation,
		CollegeName:      f.CollegeName,
		CollegeLocation:  f.CollegeLocation,
		Date:             f.Date,
		NumberOfStudents: f.NumberOfStudents,
		Location:         f.Location,
		EditedContent:    f.EditedContent,
	}
}

// CreateLetter creates an unsigned letter.
func (s *Store) CreateLetter(ctx context.Context, data store.LetterData) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	doc := &letterDoc{
		OwnerID:   data.OwnerID,
		Name:      data.Name,
		Type:      string(data.Type),
		Form:      formToDoc(data.Form),
		CreatedAt: time.Now().UTC(),
	}

	result, err := s.letters.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert letter: %w", err)
	}
	if oid, ok := result.InsertedID.(bson.ObjectID); ok {
		doc.ID = oid
	}
	return docToLetter(doc), nil
}

// GetLetter retrieves a letter by id.
func (s *Store) GetLetter(ctx context.Context, id string) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	var doc letterDoc
	err = s.letters.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find letter: %w", err)
	}
	return docToLetter(&doc), nil
}

// ListLetters returns an owner's letters in insertion order.
func (s *Store) ListLetters(ctx context.Context, ownerID string) ([]*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	findOpts := mongoopts.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cursor, err := s.letters.Find(ctx, bson.M{"owner_id": ownerID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list letters: %w", err)
	}
	defer cursor.Close(ctx)

	var letters []*store.Letter
	for cursor.Next(ctx) {
		var doc letterDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode letter: %w", err)
		}
		letters = append(letters, docToLetter(&doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate letters: %w", err)
	}
	return letters, nil
}

// SetSignature attaches a signature to an unsigned letter.
// Uses findOneAndUpdate conditioned on signature_data being absent, so the
// unsigned check and the write are one atomic operation - two concurrent
// signers cannot both succeed.
func (s *Store) SetSignature(ctx context.Context, letterID string, sig store.Signature) (*store.Letter, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	oid, err := bson.ObjectIDFromHex(letterID)
	if err != nil {
		return nil, store.ErrInvalidID
	}

	filter := bson.M{
		"_id":            oid,
		"signature_data": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"signature_data": signatureDoc{
		Image:      sig.Image,
		SignedBy:   sig.SignedBy,
		SignedByID: sig.SignedByID,
		SignedAt:   sig.SignedAt,
	}}}

	opts := mongoopts.FindOneAndUpdate().SetReturnDocument(mongoopts.After)
	var doc letterDoc
	err = s.letters.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return docToLetter(&doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("set signature: %w", err)
	}

	// No match: either the letter does not exist or it is already signed.
	if _, getErr := s.GetLetter(ctx, letterID); getErr != nil {
		return nil, getErr
	}
	return nil, store.ErrAlreadySigned
}

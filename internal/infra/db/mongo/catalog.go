package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincatalog "travelbooking/internal/domain/catalog"
	domainuser "travelbooking/internal/domain/user"
	"travelbooking/internal/infra/db/record"
)

type catalogView struct {
	unit *Unit
	col  *mongo.Collection
}

func (c catalogView) ByID(ctx context.Context, id domaincatalog.UnitID) (*domaincatalog.Unit, error) {
	var doc record.Unit
	err := c.col.FindOne(c.unit.sessionContext(ctx), bson.M{"_id": string(id)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domaincatalog.ErrUnitNotFound.WithDetail("unit_id", string(id))
	}
	if err != nil {
		return nil, classify(err)
	}
	return doc.ToUnit()
}

type userDirectory struct {
	unit *Unit
	col  *mongo.Collection
}

func (d userDirectory) Exists(ctx context.Context, id domainuser.ID) (bool, error) {
	n, err := d.col.CountDocuments(d.unit.sessionContext(ctx), bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

type userDocument struct {
	ID    string   `bson:"_id"`
	Name  string   `bson:"name"`
	Email string   `bson:"email"`
	Roles []string `bson:"roles"`
}

// PutUnit upserts a catalog snapshot outside any unit of work.
func (c *Client) PutUnit(ctx context.Context, unit *domaincatalog.Unit) error {
	if unit == nil {
		return domaincatalog.ErrUnitNotFound
	}
	if err := unit.Validate(); err != nil {
		return err
	}
	doc := record.FromUnit(unit)
	_, err := c.DB.Collection(unitsCollection).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (c *Client) PutUser(ctx context.Context, profile domainuser.Profile) error {
	if profile.ID == "" {
		return domainuser.ErrIDRequired
	}
	doc := userDocument{ID: string(profile.ID), Name: profile.Name, Email: profile.Email}
	for _, r := range profile.Roles {
		doc.Roles = append(doc.Roles, string(r))
	}
	_, err := c.DB.Collection(usersCollection).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

var (
	_ domaincatalog.Catalog = catalogView{}
	_ domainuser.Directory  = userDirectory{}
)

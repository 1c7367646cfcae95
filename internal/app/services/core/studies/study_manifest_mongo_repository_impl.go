package studies

import (
	"context"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type StudyManifestMongoRepository struct {
	Collection *mongo.Collection
}

func NewStudyManifestMongoRepository(db *mongo.Client, dbName string) contracts.StudyManifestRepository {
	return &StudyManifestMongoRepository{
		Collection: db.Database(dbName).Collection(constvars.MongoCollectionStudyManifests),
	}
}

// FindByStudyID returns nil without error when the study was never downloaded.
func (repo *StudyManifestMongoRepository) FindByStudyID(ctx context.Context, patientID, studyID string) (*models.StudyManifest, error) {
	var manifest models.StudyManifest
	err := repo.Collection.FindOne(ctx, bson.M{"patient_id": patientID, "study_id": studyID}).Decode(&manifest)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, exceptions.ErrMongoDBFindDocument(err)
	}
	return &manifest, nil
}

func (repo *StudyManifestMongoRepository) Upsert(ctx context.Context, manifest *models.StudyManifest) error {
	filter := bson.M{"patient_id": manifest.PatientID, "study_id": manifest.StudyID}
	_, err := repo.Collection.ReplaceOne(ctx, filter, manifest, options.Replace().SetUpsert(true))
	if err != nil {
		return exceptions.ErrMongoDBUpsertDocument(err)
	}
	return nil
}

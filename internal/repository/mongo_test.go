package repository

import (
	"context"
	"testing"

	mongoInfra "github.com/RishiKendai/textguard/internal/infra/mongo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect does not dial until the first operation, so no server is needed here
func TestGetCollection(t *testing.T) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	repo := NewMongoRepository(&mongoInfra.Client{Client: client, Database: client.Database("textguard_test")})

	for _, name := range []string{documentsCollection, reportsCollection} {
		coll := repo.GetCollection(name)
		assert.Equal(t, name, coll.Name())
		assert.Equal(t, "textguard_test", coll.Database().Name())
	}
}

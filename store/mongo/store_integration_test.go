//go:build integration

package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/store/storetest"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func newClient(t *testing.T) *mongo.Client {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})
	return client
}

func TestStoreContract(t *testing.T) {
	client := newClient(t)
	storetest.Run(t, func(t *testing.T) account.Store {
		db := "adminauth_test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
		t.Cleanup(func() { _ = client.Database(db).Drop(context.Background()) })

		s := NewStore(client, Options{Database: db})
		if err := s.EnsureIndexes(t.Context()); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		return s
	})
}

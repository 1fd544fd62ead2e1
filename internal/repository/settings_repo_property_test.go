package repository

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pompomputin/wwebjs-webui-docker/internal/db"
	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// The last saved settings for a session are what Get returns, whatever was
// saved before and whatever other sessions hold.
func TestSettingsLastWriteWinsProperty(t *testing.T) {
	database, err := db.NewTestDB()
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer database.Close()

	repo := NewSettingsRepository(database)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	genSettings := gopter.CombineGens(gen.Bool(), gen.Bool(), gen.Bool()).Map(func(v []interface{}) model.Settings {
		return model.Settings{TypingIndicator: v[0].(bool), AutoSeen: v[1].(bool), OnlinePresence: v[2].(bool)}
	})

	properties.Property("get returns the last save", prop.ForAll(
		func(id string, first, last, other model.Settings) bool {
			if err := repo.Save(ctx, id, first); err != nil {
				return false
			}
			if err := repo.Save(ctx, id+"-other", other); err != nil {
				return false
			}
			if err := repo.Save(ctx, id, last); err != nil {
				return false
			}
			got, err := repo.Get(ctx, id)
			return err == nil && got == last
		},
		gen.Identifier(),
		genSettings,
		genSettings,
		genSettings,
	))

	properties.TestingRun(t)
}

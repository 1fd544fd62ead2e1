package registry

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

var allStatuses = []model.SessionStatus{
	model.SessionStatusInitializing,
	model.SessionStatusAwaitingCredential,
	model.SessionStatusAuthenticated,
	model.SessionStatusReady,
	model.SessionStatusDisconnected,
	model.SessionStatusAuthFailed,
	model.SessionStatusInitError,
	model.SessionStatusRemoved,
}

func genStatus() gopter.Gen {
	return gen.IntRange(0, len(allStatuses)-1).Map(func(i int) model.SessionStatus {
		return allStatuses[i]
	})
}

func TestRegistry_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	// Whatever sequence of patches is applied, a challenge is only ever
	// visible while the session awaits a credential.
	properties.Property("challenge only in AwaitingCredential", prop.ForAll(
		func(statuses []model.SessionStatus, challenge string) bool {
			r := New()
			for _, s := range statuses {
				rec := r.Upsert("p", func(rec *Record) {
					rec.Status = s
					rec.Challenge = challenge
				})
				if rec.HasChallenge() && rec.Status != model.SessionStatusAwaitingCredential {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genStatus()),
		gen.AlphaString(),
	))

	// Revisions strictly increase across writes.
	properties.Property("revision is monotonic", prop.ForAll(
		func(ids []string) bool {
			r := New()
			var last uint64
			for _, id := range ids {
				rec := r.Upsert(id, func(*Record) {})
				if rec.Revision <= last {
					return false
				}
				last = rec.Revision
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

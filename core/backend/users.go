package backend

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/homesense/telemetry"
)

func (b *Backend) handleUsers(router *mux.Router) {
	createResource(b, router, resourceConfiguration[telemetry.User, telemetry.UserPatch, telemetry.User]{
		resource:       "user",
		title:          "User",
		createSchemaID: telemetry.UserSchemaID,
		patchSchemaID:  telemetry.UserPatchSchemaID,
		create:         b.store.CreateUser,
		update:         b.store.UpdateUser,
		delete:         b.store.DeleteUser,
		read:           b.store.User,
		list: func(ctx context.Context) ([]telemetry.User, error) {
			return b.store.Users(ctx)
		},
	})
}

// userExists returns a client message if the user with id does not exist
func (b *Backend) userExists(ctx context.Context, id uuid.UUID) (string, error) {
	_, err := b.store.User(ctx, id)
	return missingReference("user", id, err)
}

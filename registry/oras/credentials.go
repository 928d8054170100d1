package oras

import (
	"context"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// DockerCredentialStore reads credentials from the Docker config file and
// the credential helpers it names.
func DockerCredentialStore() (credentials.Store, error) {
	return credentials.NewStoreFromDocker(credentials.StoreOptions{})
}

// memoryStore holds cred for the single registry host[:port]. Lookups for
// any other host return an empty credential.
func memoryStore(registry string, cred auth.Credential) credentials.Store {
	store := credentials.NewMemoryStore()
	_ = store.Put(context.Background(), registry, cred) //nolint:errcheck // the memory store never fails a put
	return store
}

package store

import (
	"errors"

	"cloud.google.com/go/firestore"
)

var ErrMissingCollection = errors.New("collection name is required")

const ColUsers = "users"

type Store struct {
	FS *firestore.Client
}

func New(fs *firestore.Client) *Store {
	return &Store{FS: fs}
}

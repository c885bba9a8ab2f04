package storage

import "errors"

var (
	ErrGet    = errors.New("unable to retrieve data from session storage")
	ErrSet    = errors.New("unable to store data in session storage")
	ErrDelete = errors.New("unable to delete data from session storage")
)
